package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"intake/pkg/config"
)

// loadSecrets decrypts the secrets file into process memory when one exists.
// Without a file, providers fall back to plain environment variables.
func loadSecrets(projectDir string) error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}
	password, err := readPassword("Secrets password: ")
	if err != nil {
		return err
	}
	secrets, err := config.DecryptSecretsFile(projectDir, password)
	if err != nil {
		return err
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

// encryptSecretsInteractive prompts for provider API keys and writes them to
// the encrypted secrets file. Blank entries are skipped.
func encryptSecretsInteractive(projectDir string) error {
	reader := bufio.NewReader(os.Stdin)
	secrets := make(map[string]string)
	for _, name := range []string{config.EnvAnthropicAPIKey, config.EnvOpenAIAPIKey, config.EnvGoogleAPIKey} {
		fmt.Printf("%s (blank to skip): ", name)
		value, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		value = strings.TrimSpace(value)
		if value != "" {
			secrets[name] = value
		}
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no keys entered")
	}

	password, err := readPassword("Choose a password: ")
	if err != nil {
		return err
	}
	confirmed, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirmed {
		return fmt.Errorf("passwords do not match")
	}

	if err := config.EncryptSecretsFile(projectDir, password, secrets); err != nil {
		return err
	}
	fmt.Printf("Stored %d key(s).\n", len(secrets))
	return nil
}

// readPassword reads without echo on a terminal, falling back to a plain
// line read when stdin is piped.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(syscall.Stdin) {
		raw, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
