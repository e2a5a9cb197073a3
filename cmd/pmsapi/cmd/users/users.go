package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
	Long:  `Commands for managing user accounts directly against the database.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&usernameFlag, "username", "", "Unique username")
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Display name (defaults to the username)")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to assign to the user (required)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")

	listCmd.Flags().StringVar(&filterFlag, "filter", "", `go-bexpr filter, e.g. '"ADMIN" in roles and active == true'`)

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
}
