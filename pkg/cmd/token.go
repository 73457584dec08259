package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/slipwire-dev/slipwire/pkg/log"
	"github.com/slipwire-dev/slipwire/pkg/relay/token"
)

var (
	tokenKeyFile string
	tokenPubFile string
	tokenClient  string
	tokenTTL     time.Duration
	tokenOutDir  string
)

func init() {
	tokenKeygenCmd.Flags().StringVar(&tokenOutDir, "out-dir", ".", "Directory the key pair is written to.")

	tokenCreateCmd.Flags().StringVar(&tokenKeyFile, "key", "", "PEM file with the EC private key to sign with.")
	tokenCreateCmd.Flags().StringVar(&tokenClient, "client", "", "Client ID the token is issued to. Defaults to a fresh one.")
	tokenCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "How long the token stays valid.")
	tokenCreateCmd.MarkFlagRequired("key")

	tokenVerifyCmd.Flags().StringVar(&tokenPubFile, "public-key", "", "PEM file with the EC public key to verify against.")
	tokenVerifyCmd.Flags().StringVar(&tokenClient, "client", "", "Client ID the token must be issued to.")
	tokenVerifyCmd.MarkFlagRequired("public-key")
	tokenVerifyCmd.MarkFlagRequired("client")

	tokenCmd.AddCommand(tokenKeygenCmd)
	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)
	rootCmd.AddCommand(tokenCmd)
}

var tokenKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signing key pair for relay tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		priv, pub, err := token.GenerateKeyPair()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(tokenOutDir, 0755); err != nil {
			return err
		}
		privPath := filepath.Join(tokenOutDir, "slipwire.key")
		pubPath := filepath.Join(tokenOutDir, "slipwire.pub")
		if err := os.WriteFile(privPath, priv, 0600); err != nil {
			return err
		}
		if err := os.WriteFile(pubPath, pub, 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s and %s.\n", privPath, pubPath)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint and verify relay bearer tokens",
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint a bearer token for a relay client",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		keyPEM, err := os.ReadFile(tokenKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}
		issuer, err := token.NewIssuer(keyPEM)
		if err != nil {
			return err
		}

		clientID := uuid.New()
		if tokenClient != "" {
			clientID, err = uuid.Parse(tokenClient)
			if err != nil {
				return fmt.Errorf("invalid client id: %w", err)
			}
		}

		tok, claims, err := issuer.IssueToken(clientID, tokenTTL)
		if err != nil {
			return err
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return err
		}
		log.Debugf("issued token for %s, expires %s", clientID, exp)
		fmt.Println(tok)
		return nil
	},
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify TOKEN",
	Short: "Verify a bearer token against a relay public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		pubPEM, err := os.ReadFile(tokenPubFile)
		if err != nil {
			return fmt.Errorf("failed to read public key: %w", err)
		}
		v, err := token.NewValidator(pubPEM)
		if err != nil {
			return err
		}

		claims, err := v.Validate(args[0], tokenClient)
		if err != nil {
			return fmt.Errorf("token rejected: %w", err)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return err
		}
		fmt.Printf("Token valid for %s, expires %s.\n", tokenClient, exp.Format(time.RFC3339))
		return nil
	},
}
