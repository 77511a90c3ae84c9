//go:generate mockgen -package mocks -destination mocks/mock_auth.go nalanda/pkg/auth Prompter,PasswordStore

package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"nalanda/pkg/config"
)

// Prompter asks the user for values on the terminal
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
}

// TerminalPrompter reads from stdin and writes prompts to stdout
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

// NewTerminalPrompter creates a prompter bound to the process terminal
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  int(os.Stdin.Fd()),
	}
}

// ReadLine prints prompt and returns the trimmed line typed by the user
func (p *TerminalPrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret reads without echo when stdin is a terminal
func (p *TerminalPrompter) ReadSecret(prompt string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.ReadLine(prompt)
	}
	fmt.Fprint(p.out, prompt)
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// Confirm asks a yes/no question; only "y" and "yes" count as yes
func Confirm(p Prompter, question string) (bool, error) {
	answer, err := p.ReadLine(question + " [y/n]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// AskAll prompts for username, password and root directory in that order
// and stores the answers in cfg
func AskAll(cfg *config.Config, p Prompter) error {
	username, err := p.ReadLine("Enter username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	password, err := p.ReadSecret("Enter password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	root, err := p.ReadLine("Enter directory path to store course data: ")
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	cfg.Credentials.Username = username
	cfg.Credentials.Password = password
	cfg.Dirs.RootDir = root

	if username == "" || password == "" || root == "" {
		return fmt.Errorf("%w: username, password and directory are all required", ErrInvalidCredentials)
	}
	return nil
}

// Persist writes the prompted values as the new defaults. The password goes
// to store; the configuration file keeps it only when store is the file itself.
func Persist(cfg *config.Config, store PasswordStore) error {
	if err := store.Set(cfg.Credentials.Username, cfg.Credentials.Password); err != nil {
		return fmt.Errorf("failed to store password in %s: %w", store.Name(), err)
	}
	return config.UpdateFile(cfg.Path, func(c *config.Config) {
		c.Dirs.RootDir = cfg.Dirs.RootDir
		c.Credentials.Username = cfg.Credentials.Username
		c.Credentials.Store = cfg.Credentials.Store
		if store.Name() != config.StoreConfig {
			c.Credentials.Password = ""
		}
	})
}
