package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetPasswordCmd(a *app) *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := readPassword(cmd.OutOrStdout(), "Enter password:")
			if err != nil {
				return err
			}
			svc, err := a.userService()
			if err != nil {
				return err
			}
			if err = svc.ResetPassword(cmd.Context(), uname, pwd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password of %q reset\n", uname)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the user's username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
