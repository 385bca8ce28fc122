package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crave-grocer/api/internal/auth"
	"github.com/crave-grocer/api/internal/enum"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("agent", "", "Agent id to embed in the token")
	tokenCmd.Flags().String("role", enum.AgentRoleAgent, "Role: AGENT or ADMIN")
	tokenCmd.Flags().Duration("ttl", auth.DefaultTTL, "Token lifetime")
}

// ─── token ──────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an agent",
	Long:  `Sign a token with the configured JWT secret. Agents send it as "Authorization: Bearer <token>".`,
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	agentID, _ := cmd.Flags().GetString("agent")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	if agentID == "" {
		return fmt.Errorf("agent id required: grocer token --agent <id>")
	}
	if role != enum.AgentRoleAgent && role != enum.AgentRoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tok, err := auth.GenerateToken(cfg.JWTSecret, agentID, role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
