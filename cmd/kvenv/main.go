package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"kvenv"

	"github.com/hashicorp/logutils"
	"github.com/urfave/cli/v2"
)

func init() {
	logLevel := os.Getenv("KVENV_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: logutils.LogLevel(logLevel),
		Writer:   os.Stderr,
	}
	log.SetOutput(filter)
}

func main() {
	app := &cli.App{
		Name:  "kvenv",
		Usage: "generate .env files from Azure Key Vault secrets",
		Commands: []*cli.Command{
			generateCommand(),
			uploadCommand(),
			listCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)

		var accessErr *kvenv.VaultAccessError
		if errors.As(err, &accessErr) {
			for _, hint := range accessErr.Remediation() {
				fmt.Fprintf(os.Stderr, "  - %s\n", hint)
			}
		}

		os.Exit(1)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "config",
		Value: "app-configs.json",
		Usage: "path to the applications catalog (.json, .yaml or .yml)",
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "fetch an application's secrets and write a .env file",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "app", Required: true, Usage: "application name from the catalog"},
			&cli.StringFlag{Name: "env", Required: true, Usage: "target environment (e.g. dev, staging, prod)"},
			&cli.StringFlag{Name: "output", Value: ".env", Usage: "destination file"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print the artifact to stdout instead of writing it"},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	catalog, err := kvenv.LoadCatalog(c.String("config"))
	if err != nil {
		return err
	}

	app, err := catalog.Validate(c.String("app"), c.String("env"))
	if err != nil {
		return err
	}

	store, err := kvenv.NewKeyVaultStore(catalog.VaultName)
	if err != nil {
		return err
	}

	gen := kvenv.Generator{Store: store}

	resolved, err := gen.Resolve(c.Context, app, c.String("env"))
	if err != nil {
		return err
	}

	artifact := gen.Render(app, c.String("env"), catalog.VaultName, resolved)
	summary := kvenv.Summarize(resolved)

	if c.Bool("dry-run") {
		if _, err := os.Stdout.Write(artifact); err != nil {
			return fmt.Errorf("failed to print artifact: %w", err)
		}
		log.Printf("[INFO] dry run, nothing written")
	} else {
		output := c.String("output")
		if err := kvenv.WriteArtifact(output, artifact); err != nil {
			return err
		}
		log.Printf("[INFO] wrote %s", output)
	}

	log.Printf("[INFO] secrets found: %d/%d", summary.FoundCount, summary.TotalCount)

	if len(summary.MissingSecretNames) > 0 {
		log.Printf("[WARN] missing secrets:")
		for _, name := range summary.MissingSecretNames {
			log.Printf("[WARN]   - %s", name)
		}
		log.Printf("[INFO] add a missing secret with: az keyvault secret set --vault-name %s --name <secret-name> --value <value>",
			catalog.VaultName)
	}

	return nil
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "upload secrets from a .env file to the Key Vault",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "app", Required: true, Usage: "application name from the catalog"},
			&cli.StringFlag{Name: "env", Required: true, Usage: "target environment (e.g. dev, staging, prod)"},
			&cli.StringFlag{Name: "env-file", Required: true, Usage: "path to the .env file containing secret values"},
			&cli.BoolFlag{Name: "dry-run", Usage: "show what would be uploaded without uploading"},
		},
		Action: runUpload,
	}
}

func runUpload(c *cli.Context) error {
	catalog, err := kvenv.LoadCatalog(c.String("config"))
	if err != nil {
		return err
	}

	app, err := catalog.Validate(c.String("app"), c.String("env"))
	if err != nil {
		return err
	}

	envVars, err := kvenv.LoadEnvFile(c.String("env-file"))
	if err != nil {
		return err
	}

	pairs, missingVars := kvenv.MapSecrets(app, c.String("env"), envVars)

	if len(missingVars) > 0 {
		log.Printf("[WARN] missing environment variables in %s:", c.String("env-file"))
		for _, name := range missingVars {
			log.Printf("[WARN]   - %s", name)
		}
	}

	if len(pairs) == 0 {
		log.Printf("[WARN] no secrets to upload")
		return nil
	}

	log.Printf("[INFO] mapped %d secrets for upload", len(pairs))

	uploader := kvenv.Uploader{Out: os.Stdout}

	if c.Bool("dry-run") {
		uploader.Preview(pairs)
		return nil
	}

	store, err := kvenv.NewKeyVaultStore(catalog.VaultName)
	if err != nil {
		return err
	}
	uploader.Store = store

	if _, err := uploader.Upload(c.Context, pairs); err != nil {
		return err
	}

	log.Printf("[INFO] to generate .env files from uploaded secrets, run: kvenv generate --app %s --env %s",
		c.String("app"), c.String("env"))

	return nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list applications declared in the catalog",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			catalog, err := kvenv.LoadCatalog(c.String("config"))
			if err != nil {
				return err
			}

			fmt.Printf("Key Vault: %s\n\n", catalog.VaultName)
			for _, app := range catalog.ListApplications() {
				fmt.Printf("%s - %s\n", app.Name, app.Description)
				fmt.Printf("  environments: %s\n", strings.Join(app.Environments, ", "))
				fmt.Printf("  secrets: %d\n", app.SecretCount)
			}

			return nil
		},
	}
}
