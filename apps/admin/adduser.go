package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/coursedesk/core/user"
)

func newAddUserCmd(a *app) *cobra.Command {
	var na user.NewAdmin
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an admin account, or reset an existing one's password and roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := readPassword(cmd.OutOrStdout(), "Enter password:")
			if err != nil {
				return err
			}
			confirm, err := readPassword(cmd.OutOrStdout(), "Confirm password:")
			if err != nil {
				return err
			}
			na.Password, na.PasswordConfirm = pwd, confirm
			return a.addUser(cmd, na)
		},
	}
	cmd.Flags().StringVar(&na.Name, "name", "", "the admin's full name")
	cmd.Flags().StringVar(&na.Username, "username", "", "the admin's username")
	cmd.Flags().StringVar(&na.Email, "email", "", "the admin's email")
	cmd.MarkFlagsOneRequired("username", "email")
	return cmd
}

func (a *app) addUser(cmd *cobra.Command, na user.NewAdmin) error {
	if err := na.Validate(a.validate); err != nil {
		return a.validationMessage(err)
	}
	svc, err := a.userService()
	if err != nil {
		return err
	}
	usr, err := svc.SaveAdmin(cmd.Context(), na)
	if err != nil {
		return errors.Wrap(err, "saving admin")
	}
	a.logger.Info("admin saved", usr)
	name := usr.Username
	if name == "" {
		name = usr.Email
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin %q saved\n", name)
	return nil
}
