// Command filevault stores and retrieves password-encrypted files in a vault directory.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/absfs/filevault"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "store":
		err = runStore(os.Args[2:])
	case "retrieve":
		err = runRetrieve(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// commonFlags registers the flags shared by every command
func commonFlags(fs *flag.FlagSet) (configPath, dir *string) {
	configPath = fs.String("config", getEnv("FILEVAULT_CONFIG", ""), "path to YAML config file")
	dir = fs.String("dir", "", "vault directory (overrides config and FILEVAULT_DIR)")
	return configPath, dir
}

func openVault(configPath, dir string) (*filevault.Vault, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		cfg.Dir = dir
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	vc, err := cfg.VaultConfig(logger)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := filevault.Open(cfg.Dir, vc)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func runStore(args []string) error {
	fs := flag.NewFlagSet("store", flag.ContinueOnError)
	configPath, dir := commonFlags(fs)
	id := fs.String("id", "", "identifier for a single file (default: file base name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return errors.New("store requires at least one file")
	}
	if *id != "" && len(files) > 1 {
		return errors.New("--id can only be used with a single file")
	}

	items := make([]filevault.BatchItem, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		itemID := filepath.Base(name)
		if *id != "" {
			itemID = *id
		}
		items = append(items, filevault.BatchItem{ID: itemID, Plaintext: data})
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	v, err := openVault(*configPath, *dir)
	if err != nil {
		return err
	}
	defer v.Close()

	if len(items) == 1 {
		if err := v.Store(items[0].ID, items[0].Plaintext, password); err != nil {
			return err
		}
		fmt.Println(items[0].ID)
		return nil
	}

	var firstErr error
	for i, err := range v.StoreBatch(items, password) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", items[i].ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Println(items[i].ID)
	}
	return firstErr
}

func runRetrieve(args []string) error {
	fs := flag.NewFlagSet("retrieve", flag.ContinueOnError)
	configPath, dir := commonFlags(fs)
	out := fs.String("o", "-", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("retrieve requires exactly one identifier")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	v, err := openVault(*configPath, *dir)
	if err != nil {
		return err
	}
	defer v.Close()

	data, err := v.Retrieve(fs.Arg(0), password)
	if err != nil {
		return err
	}
	return writeOutput(*out, data)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	configPath, dir := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := openVault(*configPath, *dir)
	if err != nil {
		return err
	}
	defer v.Close()

	ids, err := v.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(filevault.FrameName(id))
	}
	return nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath, dir := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := openVault(*configPath, *dir)
	if err != nil {
		return err
	}
	defer v.Close()

	report, err := v.Check()
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	if !report.Consistent() {
		return errInconsistent
	}
	return nil
}

var errInconsistent = errors.New("vault is inconsistent")

func printReport(w io.Writer, r *filevault.ConsistencyReport) {
	fmt.Fprintf(w, "entries: %d\n", r.Entries)
	printList(w, "orphan frames", r.OrphanFrames)
	printList(w, "orphan records", r.OrphanRecords)
	printList(w, "truncated frames", r.Truncated)
	printList(w, "salt mismatches", r.SaltMismatches)
}

func printList(w io.Writer, label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "%s: %d\n", label, len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// readPassword takes the password from FILEVAULT_PASSWORD or prompts on the terminal
func readPassword(prompt string) (string, error) {
	if pw := getEnv("FILEVAULT_PASSWORD", ""); pw != "" {
		return pw, nil
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("no terminal for password prompt; set FILEVAULT_PASSWORD")
	}

	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// exitCode maps vault errors to process exit codes
func exitCode(err error) int {
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case filevault.IsInvalidRequest(err):
		return 2
	case filevault.IsNotFound(err):
		return 3
	case errors.Is(err, filevault.ErrWrongPasswordOrCorrupted), errors.Is(err, filevault.ErrTruncatedFrame):
		return 4
	case errors.Is(err, filevault.ErrPersistence):
		return 5
	default:
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: filevault <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  store [--id <identifier>] <file>...")
	fmt.Fprintln(os.Stderr, "  retrieve [-o <out>] <identifier>")
	fmt.Fprintln(os.Stderr, "  list")
	fmt.Fprintln(os.Stderr, "  check")
	fmt.Fprintln(os.Stderr, "Common flags: --config <file.yaml> --dir <vault-dir>")
	fmt.Fprintln(os.Stderr, "The password is read from FILEVAULT_PASSWORD or prompted for.")
}
