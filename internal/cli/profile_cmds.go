package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/forms"

	"github.com/spf13/cobra"
)

var errNothingToSet = errors.New("nothing to change, pass at least one flag")

func newProfileCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change body measurements and goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newProfileShowCommand(app))
	cmd.AddCommand(newProfileSetCommand(app))
	return cmd
}

func newProfileShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the profile and BMI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}
			p, err := app.store.GetProfile(ctx, uid)
			if err != nil {
				return err
			}
			printProfileForm(cmd.OutOrStdout(), forms.ProfileFormFromRecord(p))
			return nil
		},
	}
}

func newProfileSetCommand(app *App) *cobra.Command {
	var height, weight, goal, customGoal string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the profile; fields not passed keep their value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("height") && !flags.Changed("weight") &&
				!flags.Changed("goal") && !flags.Changed("custom-goal") {
				return errNothingToSet
			}

			ctx, uid, err := app.authorized(cmd.Context())
			if err != nil {
				return err
			}
			existing, err := app.store.GetProfile(ctx, uid)
			if err != nil {
				return err
			}

			form := forms.ProfileFormFromRecord(existing)
			if flags.Changed("height") {
				form.Height = height
			}
			if flags.Changed("weight") {
				form.Weight = weight
			}
			if flags.Changed("goal") {
				form.GoalChoice = goal
				if goal != fitness.GoalCustom {
					form.CustomGoal = ""
				}
			}
			if flags.Changed("custom-goal") {
				form.GoalChoice = fitness.GoalCustom
				form.CustomGoal = customGoal
			}

			in, err := form.ToInput()
			if err != nil {
				return err
			}
			saved, err := app.store.UpsertProfile(ctx, uid, in)
			if err != nil {
				return err
			}
			printProfileForm(cmd.OutOrStdout(), forms.ProfileFormFromRecord(saved))
			return nil
		},
	}

	cmd.Flags().StringVar(&height, "height", "", "height in cm, empty to clear")
	cmd.Flags().StringVar(&weight, "weight", "", "weight in kg, empty to clear")
	cmd.Flags().StringVar(&goal, "goal", "", "one of: "+strings.Join(fitness.GoalOptions(), ", "))
	cmd.Flags().StringVar(&customGoal, "custom-goal", "", "free text goal, implies --goal Custom")
	return cmd
}

func newBMICommand(_ *App) *cobra.Command {
	var height, weight string

	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute the body mass index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bmi, ok := fitness.ComputeBMIFromStrings(height, weight)
			if !ok {
				return errors.New("height must be a positive number and weight a non-negative one")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "BMI %s (%s)\n", bmi.Display, bmi.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&height, "height", "", "height in cm")
	cmd.Flags().StringVar(&weight, "weight", "", "weight in kg")
	_ = cmd.MarkFlagRequired("height")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}

func printProfileForm(out io.Writer, form forms.ProfileForm) {
	fmt.Fprintf(out, "height: %s cm\n", orDash(form.Height))
	fmt.Fprintf(out, "weight: %s kg\n", orDash(form.Weight))
	if form.GoalChoice == fitness.GoalCustom {
		fmt.Fprintf(out, "goal:   %s (%s)\n", form.GoalChoice, form.CustomGoal)
	} else {
		fmt.Fprintf(out, "goal:   %s\n", form.GoalChoice)
	}
	if bmi, ok := form.BMI(); ok {
		fmt.Fprintf(out, "BMI:    %s (%s)\n", bmi.Display, bmi.Category)
	} else {
		fmt.Fprintln(out, "BMI:    -")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
