package identity_test

import (
	"sync"
	"testing"
	"time"

	"github.com/2beens/fitlog/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_NotifiesInOrder(t *testing.T) {
	cell := identity.NewCell(nil)
	assert.Nil(t, cell.Current())

	var calls []string
	unsubA := cell.Subscribe(func(u *identity.User) { calls = append(calls, "a:"+uidOf(u)) })
	unsubB := cell.Subscribe(func(u *identity.User) {
		// listeners may read the cell while being notified
		calls = append(calls, "b:"+uidOf(cell.Current()))
	})
	defer unsubB()

	cell.Set(&identity.User{UID: "u1"})
	cell.Set(nil)

	assert.Equal(t, []string{"a:u1", "b:u1", "a:", "b:"}, calls)

	unsubA()
	unsubA()
	cell.Set(&identity.User{UID: "u2"})
	assert.Equal(t, []string{"a:u1", "b:u1", "a:", "b:", "b:u2"}, calls)
	assert.Equal(t, "u2", cell.Current().UID)
}

func TestCell_UnsubscribeDuringNotification(t *testing.T) {
	cell := identity.NewCell(nil)

	var secondCalls int
	var unsubSecond func()
	unsubFirst := cell.Subscribe(func(*identity.User) { unsubSecond() })
	defer unsubFirst()
	unsubSecond = cell.Subscribe(func(*identity.User) { secondCalls++ })

	cell.Set(&identity.User{UID: "u1"})
	assert.Equal(t, 0, secondCalls)
}

func TestCell_Close(t *testing.T) {
	cell := identity.NewCell(&identity.User{UID: "u0"})

	var calls int
	cell.Subscribe(func(*identity.User) { calls++ })
	cell.Close()

	cell.Set(&identity.User{UID: "u1"})
	unsub := cell.Subscribe(func(*identity.User) { calls++ })
	unsub()
	cell.Set(nil)

	assert.Equal(t, 0, calls)
	assert.Nil(t, cell.Current())
}

func TestCell_SetFromListener(t *testing.T) {
	cell := identity.NewCell(nil)

	var calls []string
	cell.Subscribe(func(u *identity.User) {
		calls = append(calls, "refresh:"+uidOf(u))
		// swap an expiring user for a refreshed one
		if u != nil && u.IDToken == "stale" {
			cell.Set(&identity.User{UID: u.UID, IDToken: "fresh"})
		}
	})
	cell.Subscribe(func(u *identity.User) {
		token := ""
		if u != nil {
			token = u.IDToken
		}
		calls = append(calls, "persist:"+token)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		cell.Set(&identity.User{UID: "u1", IDToken: "stale"})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Set from a listener did not return")
	}

	// the nested value goes out after the current round, to every listener
	assert.Equal(t, []string{"refresh:u1", "persist:stale", "refresh:u1", "persist:fresh"}, calls)
	assert.Equal(t, "fresh", cell.Current().IDToken)
}

func TestCell_ConcurrentSet(t *testing.T) {
	cell := identity.NewCell(nil)

	var (
		mu   sync.Mutex
		seen int
	)
	cell.Subscribe(func(*identity.User) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cell.Set(&identity.User{UID: "u"})
		}()
	}
	wg.Wait()

	require.NotNil(t, cell.Current())
	assert.Equal(t, 20, seen)
}

func uidOf(u *identity.User) string {
	if u == nil {
		return ""
	}
	return u.UID
}
