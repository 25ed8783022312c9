package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/mjuauth/auth"
	"github.com/jmcleod/mjuauth/result"
	"github.com/jmcleod/mjuauth/service"
)

var loginService string

var loginCmd = &cobra.Command{
	Use:   "login <student-id>",
	Short: "Log in to one portal and report the outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd, args[0], func(ctx context.Context, rt *runtime, creds *auth.Credentials) error {
			out := rt.orch.Login(ctx, creds, loginService)
			res := result.Result[map[string]string]{Outcome: out.Outcome, Kind: out.Kind, Message: out.Message}
			if out.Success() {
				res.Data = map[string]string{"service": loginService}
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var cardCmd = &cobra.Command{
	Use:   "card <student-id>",
	Short: "Fetch the student card from MSI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd, args[0], func(ctx context.Context, rt *runtime, creds *auth.Credentials) error {
			return printResult(cmd.OutOrStdout(), rt.orch.GetStudentCard(ctx, creds))
		})
	},
}

var changelogCmd = &cobra.Command{
	Use:   "changelog <student-id>",
	Short: "Fetch the enrollment change log from MSI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd, args[0], func(ctx context.Context, rt *runtime, creds *auth.Credentials) error {
			return printResult(cmd.OutOrStdout(), rt.orch.GetStudentChangelog(ctx, creds))
		})
	},
}

var basicInfoCmd = &cobra.Command{
	Use:   "basicinfo <student-id>",
	Short: "Fetch the summary card from the MSI main page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd, args[0], func(ctx context.Context, rt *runtime, creds *auth.Credentials) error {
			return printResult(cmd.OutOrStdout(), rt.orch.GetStudentBasicInfo(ctx, creds))
		})
	},
}

// withCredentials builds the runtime, reads the password and hands both to
// fn. The credentials are wiped afterwards.
func withCredentials(cmd *cobra.Command, userID string, fn func(context.Context, *runtime, *auth.Credentials) error) error {
	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	password, err := readPassword(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	creds, err := auth.NewCredentials(userID, password)
	if err != nil {
		return err
	}
	defer creds.Destroy()
	return fn(cmd.Context(), rt, creds)
}

// printResult writes res as indented JSON and turns an unsuccessful outcome
// into a non-zero exit.
func printResult[T any](w io.Writer, res result.Result[T]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%s: %s", res.Kind, res.Message)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(loginCmd, cardCmd, changelogCmd, basicInfoCmd)
	loginCmd.Flags().StringVarP(&loginService, "service", "s", service.MSI, "Service to log in to (see mjuauth services)")
}
