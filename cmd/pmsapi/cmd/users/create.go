package users

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/cmd/cmdutil"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/config"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/services/iam"
)

var (
	emailFlag    string
	usernameFlag string
	nameFlag     string
	passwordFlag string
	rolesInput   []string
	stdinFlag    bool
)

const minPasswordLength = 6

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate required flags
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email %q: %w", emailFlag, err)
		}
		if usernameFlag == "" {
			return fmt.Errorf("--username flag is required")
		}
		if len(rolesInput) == 0 {
			return fmt.Errorf("at least one role must be specified using --role")
		}

		password := passwordFlag
		if stdinFlag {
			// Read password from stdin
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if len(password) < minPasswordLength {
			return fmt.Errorf("password must be at least %d characters", minPasswordLength)
		}

		name := nameFlag
		if name == "" {
			name = usernameFlag
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bundle, err := cmdutil.NewIAMServiceBundle(cfg, cmdutil.IAMServiceOptions{})
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := context.Background()
		user, err := bundle.Service.CreateUser(ctx, iam.CreateUserInput{
			Name:     name,
			Username: usernameFlag,
			Email:    emailFlag,
			Password: password,
			Roles:    rolesInput,
		})
		if err != nil {
			if errors.Is(err, iam.ErrRoleNotFound) {
				return fmt.Errorf("%w\nValid roles are: %s", err, strings.Join(auth.AllRoles(), ", "))
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID: %d\n", user.ID)
		fmt.Printf("Email: %s\n", user.Email)
		fmt.Printf("Username: %s\n", user.Username)
		fmt.Printf("Name: %s\n", user.Name)
		fmt.Printf("Roles: %s\n", strings.Join(user.RoleNames, ", "))
		fmt.Println("----------------------------------------")

		return nil
	},
}
