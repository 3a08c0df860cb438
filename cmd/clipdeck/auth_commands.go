package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clipdeck/internal/api"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newRegisterCommand(ctx),
		newLogoutCommand(ctx),
		newWhoamiCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			pass, err := resolvePassword(cmd, password)
			if err != nil {
				return err
			}
			runCtx := ctx.commandCtx(cmd)
			sess, err := ctx.ensureSession(runCtx)
			if err != nil {
				return err
			}
			if err := sess.Login(runCtx, api.Credentials{Username: username, Password: pass}); err != nil {
				return err
			}
			user, err := sess.Identity(runCtx)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (defaults to CLIPDECK_PASSWORD or stdin)")
	return cmd
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Username = strings.TrimSpace(req.Username)
			req.Email = strings.TrimSpace(req.Email)
			if req.Username == "" || req.Email == "" {
				return errors.New("--username and --email are required")
			}
			pass, err := resolvePassword(cmd, req.Password)
			if err != nil {
				return err
			}
			req.Password = pass
			runCtx := ctx.commandCtx(cmd)
			sess, err := ctx.ensureSession(runCtx)
			if err != nil {
				return err
			}
			if err := sess.Register(runCtx, req); err != nil {
				return err
			}
			user, err := sess.Identity(runCtx)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Account username")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "Display name")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Account password (defaults to CLIPDECK_PASSWORD or stdin)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			sess, err := ctx.ensureSession(runCtx)
			if err != nil {
				return err
			}
			if err := sess.Logout(runCtx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.commandCtx(cmd)
			sess, err := ctx.ensureSession(runCtx)
			if err != nil {
				return err
			}
			user, err := sess.Identity(runCtx)
			if err != nil {
				return explainSessionError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, user)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", user.DisplayName())
			fmt.Fprintf(out, "Username: %s\n", user.Username)
			if user.Email != "" {
				fmt.Fprintf(out, "Email:    %s\n", user.Email)
			}
			if joined := formatDate(user.CreatedAt); joined != "" {
				fmt.Fprintf(out, "Joined:   %s\n", joined)
			}
			return nil
		},
	}
}

// resolvePassword prefers the flag, then CLIPDECK_PASSWORD, then one line of stdin.
func resolvePassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env, ok := os.LookupEnv("CLIPDECK_PASSWORD"); ok && env != "" {
		return env, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required (--password, CLIPDECK_PASSWORD, or stdin)")
	}
	return line, nil
}
