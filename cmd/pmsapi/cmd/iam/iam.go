package iam

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/cmd/cmdutil"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/auth"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/config"
	"github.com/venkatesh-i2i/pms-backend/cmd/pmsapi/internal/server"
)

var policiesRole string

// IamCmd is the parent command for iam operations
var IamCmd = &cobra.Command{
	Use:   "iam",
	Short: "Manage roles and route policies",
	Long:  `Commands for seeding baseline roles and inspecting the route policy table.`,
}

// seedCmd ensures the baseline roles and the configured administrator exist
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create baseline roles and the configured administrator",
	Long: `Ensures the ADMIN, MANAGER, DEVELOPER and TESTER roles exist and, when
admin.email, admin.username and admin.password are all set, creates the first
administrator account. Running it again changes nothing.

Example:
  PMS_ADMIN_EMAIL=admin@example.com PMS_ADMIN_USERNAME=admin \
  PMS_ADMIN_PASSWORD=changeme pmsapi iam seed
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bundle, err := cmdutil.NewIAMServiceBundle(cfg, cmdutil.IAMServiceOptions{})
		if err != nil {
			return err
		}
		defer bundle.Close()

		report := bundle.Seeder(cfg.Admin, 0).Seed(ctx)

		if len(report.RolesCreated) > 0 {
			fmt.Printf("✓ Created roles: %s\n", strings.Join(report.RolesCreated, ", "))
		} else {
			fmt.Println("Baseline roles already present")
		}
		switch {
		case report.AdminCreated:
			fmt.Printf("✓ Created administrator %s\n", cfg.Admin.Email)
		case !cfg.Admin.Enabled():
			fmt.Println("Administrator seeding skipped (admin.email, admin.username and admin.password not all set)")
		default:
			fmt.Printf("Administrator %s already exists\n", cfg.Admin.Email)
		}

		if len(report.Errors) > 0 {
			return fmt.Errorf("seeding finished with %d error(s); see log", len(report.Errors))
		}
		return nil
	},
}

// policiesCmd prints the route policy table
var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Print the route policy table",
	Long: `Lists every API route with the roles allowed to call it. Public routes
are listed under the "anonymous" subject.

Example:
  pmsapi iam policies --role DEVELOPER
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := auth.NewPolicyRegistry()
		if err != nil {
			return err
		}
		if err := server.RegisterPolicies(registry); err != nil {
			return fmt.Errorf("failed to build policy table: %w", err)
		}

		var grants []auth.RouteGrant
		if policiesRole != "" {
			grants, err = registry.GrantsFor([]string{auth.NormalizeRole(policiesRole)})
		} else {
			grants, err = registry.Grants()
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tROLE")
		for _, g := range grants {
			fmt.Fprintf(w, "%s\t%s\t%s\n", g.Method, g.Path, g.Role)
		}
		return w.Flush()
	},
}

func init() {
	policiesCmd.Flags().StringVar(&policiesRole, "role", "", "Only show routes reachable by this role")

	IamCmd.AddCommand(seedCmd)
	IamCmd.AddCommand(policiesCmd)
}
