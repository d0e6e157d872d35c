package cli

import (
	"fmt"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/auth"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/config"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a development token signed with the stub API secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		p   domain.Profile
		ttl time.Duration
	)
	var role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if p.ID == "" {
				return fmt.Errorf("--sub is required")
			}
			p.Role = domain.Role(role)
			token, err := auth.NewIssuer(cfg.Server.JWTSecret).Mint(p, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.ID, "sub", "", "user id (token subject)")
	cmd.Flags().StringVar(&p.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "STUDENT or TEACHER")
	cmd.Flags().BoolVar(&p.Registered, "registered", true, "whether the profile is complete")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
