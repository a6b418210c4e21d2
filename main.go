package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illarion/filevault/cmd"
)

// stringList collects a repeatable string flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.DisableCoreDumps(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to disable core dumps: %s\n", err)
	}

	var g cmd.Globals
	global := flag.NewFlagSet("filevault", flag.ExitOnError)
	global.StringVar(&g.Store, "store", "", "Path to the store database")
	global.StringVar(&g.Config, "config", "", "Path to the config file")
	global.StringVar(&g.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "init":
		runInit(g, args[1:])
	case "encrypt":
		runEncrypt(ctx, g, args[1:])
	case "decrypt":
		runDecrypt(ctx, g, args[1:])
	case "versions":
		runVersions(ctx, g, args[1:])
	case "rm":
		runRm(ctx, g, args[1:])
	case "search":
		runSearch(g, args[1:])
	case "shred":
		runShred(ctx, g, args[1:])
	case "tag":
		runTag(ctx, g, args[1:])
	case "diff":
		runDiff(ctx, g, args[1:])
	case "verify":
		runVerify(ctx, g, args[1:])
	case "repair":
		runRepair(ctx, g, args[1:])
	case "passwd":
		runPasswd(g, args[1:])
	case "status":
		runStatus(g, args[1:])
	case "compact":
		runCompact(g, args[1:])
	case "genpass":
		runGenPass(args[1:])
	case "keyring":
		runKeyring(g, args[1:])
	case "completion":
		runCompletion(args[1:])
	case "help", "-h", "--help":
		if len(args) <= 1 {
			printUsage()
			return
		}
		printCommandHelp(args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func requireArgs(fs *flag.FlagSet, n int, usage string) []string {
	if fs.NArg() != n {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	return fs.Args()
}

func version(s string) uint64 {
	v, err := cmd.ParseVersion(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return v
}

func runInit(g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init(g)
}

func runEncrypt(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	var f cmd.EncryptFlags
	var tags stringList
	fs.StringVar(&f.ID, "id", "", "Add a new version to an existing identity")
	fs.Var(&tags, "tag", "Tag to attach (repeatable)")
	fs.StringVar(&f.Notes, "note", "", "Notes to attach")
	fs.BoolVar(&f.Keep, "keep", false, "Do not shred the sources")
	fs.BoolVar(&f.Shred, "shred", false, "Shred the sources even when disabled in config")
	parse(fs, args)
	f.Tags = tags

	cmd.Encrypt(ctx, g, fs.Args(), f)
}

func runDecrypt(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	var f cmd.DecryptFlags
	v := fs.String("version", "latest", "Version to decrypt")
	fs.StringVar(&f.Out, "out", "", "Write to file instead of stdout (- for stdout)")
	fs.StringVar(&f.Restore, "restore", "", "Restore under the original file name into this directory")
	fs.BoolVar(&f.Force, "force", false, "Overwrite existing files")
	parse(fs, args)
	rest := requireArgs(fs, 1, "filevault decrypt [--version N] [--out FILE|--restore DIR] [--force] <id|path>")
	f.Version = version(*v)

	cmd.Decrypt(ctx, g, rest[0], f)
}

func runVersions(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("versions", flag.ExitOnError)
	parse(fs, args)
	rest := requireArgs(fs, 1, "filevault versions <id|path>")

	cmd.Versions(ctx, g, rest[0])
}

func runRm(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parse(fs, args)
	rest := requireArgs(fs, 2, "filevault rm <id|path> <version>")

	v := version(rest[1])
	if v == 0 {
		fmt.Fprintln(os.Stderr, "Error: rm requires an explicit version")
		os.Exit(1)
	}
	cmd.Remove(ctx, g, rest[0], v)
}

func runSearch(g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	parse(fs, args)

	cmd.Search(g, strings.Join(fs.Args(), " "))
}

func runShred(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("shred", flag.ExitOnError)
	force := fs.Bool("force", false, "Do not ask for confirmation")
	parse(fs, args)

	cmd.Shred(ctx, g, fs.Args(), *force)
}

func runTag(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	var tags stringList
	fs.Var(&tags, "tag", "Tag to set (repeatable)")
	notes := fs.String("note", "", "Notes to set")
	parse(fs, args)
	rest := requireArgs(fs, 1, "filevault tag [--tag TAG]... [--note TEXT] <id|path>")

	cmd.Tag(ctx, g, rest[0], tags, *notes)
}

func runDiff(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parse(fs, args)
	rest := requireArgs(fs, 3, "filevault diff <id|path> <from> <to>")

	cmd.Diff(ctx, g, rest[0], version(rest[1]), version(rest[2]))
}

func runVerify(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	parse(fs, args)

	cmd.Verify(ctx, g)
}

func runRepair(ctx context.Context, g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	parse(fs, args)

	cmd.Repair(ctx, g)
}

func runPasswd(g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	upgrade := fs.Bool("upgrade", false, "Keep the password, raise the key derivation cost")
	parse(fs, args)

	cmd.Passwd(g, *upgrade)
}

func runStatus(g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	cmd.Status(g)
}

func runCompact(g cmd.Globals, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	cmd.Compact(g)
}

func runGenPass(args []string) {
	fs := flag.NewFlagSet("genpass", flag.ExitOnError)
	length := fs.Int("length", 24, "Password length")
	parse(fs, args)

	cmd.GenPass(*length)
}

func runKeyring(g cmd.Globals, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: filevault keyring <save|delete|status>")
		os.Exit(1)
	}
	switch args[0] {
	case "save":
		cmd.KeyringSave(g)
	case "delete":
		cmd.KeyringDelete(g)
	case "status":
		cmd.KeyringStatus(g)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: filevault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("filevault - Encrypted, versioned storage for local files")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  filevault [--store PATH] [--config PATH] [--log-level LEVEL] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new store")
	fmt.Println("  encrypt     Store a new encrypted version of files or directories")
	fmt.Println("  decrypt     Write the plaintext of a stored version")
	fmt.Println("  versions    List the versions of a file")
	fmt.Println("  rm          Delete one version")
	fmt.Println("  search      Find stored files by name, path, tag or notes")
	fmt.Println("  shred       Overwrite and remove files")
	fmt.Println("  tag         Replace the tags and notes of a file")
	fmt.Println("  diff        Show changes between two versions")
	fmt.Println("  verify      Authenticate every stored version")
	fmt.Println("  repair      Reconcile the index after an interrupted write")
	fmt.Println("  passwd      Change the store password")
	fmt.Println("  status      Show store status")
	fmt.Println("  compact     Compact the store to reclaim disk space")
	fmt.Println("  genpass     Generate a strong password")
	fmt.Println("  keyring     Manage the password in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  filevault init                              # Create new store")
	fmt.Println("  filevault encrypt --tag prod .env           # Encrypt and shred .env")
	fmt.Println("  filevault decrypt --restore . .env          # Restore latest .env")
	fmt.Println("  filevault search prod                       # Find files tagged prod")
	fmt.Println()
	fmt.Println("Use 'filevault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("filevault init")
		fmt.Println()
		fmt.Println("Creates a new store and its master credential.")
		fmt.Println("Prompts for a password, or reads FILEVAULT_PASSWORD.")
		fmt.Println("The password is not stored anywhere - you must remember it.")
	case "encrypt":
		fmt.Println("filevault encrypt [--id ID] [--tag TAG]... [--note TEXT] [--keep|--shred] <path>...")
		fmt.Println()
		fmt.Println("Encrypts each file as a new version. A file whose path was encrypted before")
		fmt.Println("becomes the next version of the same identity. Directories are walked and")
		fmt.Println("every regular file is encrypted; failures are reported per file.")
		fmt.Println("Sources are shredded after the version is committed unless --keep is given")
		fmt.Println("or shredding is disabled in the config.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --id ID       Add the version to an existing identity")
		fmt.Println("  --tag TAG     Tag to attach (repeatable, merged with existing tags)")
		fmt.Println("  --note TEXT   Notes to attach (replaces existing notes)")
		fmt.Println("  --keep        Leave the source files in place")
		fmt.Println("  --shred       Shred the sources even when disabled in config")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  filevault encrypt notes.txt")
		fmt.Println("  filevault encrypt --tag tax --keep ~/Documents/2025")
	case "decrypt":
		fmt.Println("filevault decrypt [--version N] [--out FILE|--restore DIR] [--force] <id|path>")
		fmt.Println()
		fmt.Println("Authenticates and decrypts one version. Without --out or --restore the")
		fmt.Println("plaintext goes to stdout. Existing files are never overwritten without --force.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --version N   Version to decrypt (default: latest)")
		fmt.Println("  --out FILE    Write to FILE")
		fmt.Println("  --restore DIR Write under the original file name inside DIR")
		fmt.Println("  --force       Overwrite an existing file")
	case "versions":
		fmt.Println("filevault versions <id|path>")
		fmt.Println()
		fmt.Println("Lists the versions of a file, newest first. Does not require a password.")
	case "rm":
		fmt.Println("filevault rm <id|path> <version>")
		fmt.Println()
		fmt.Println("Deletes one version. Deleting the last version removes the file from the store.")
		fmt.Println("Run 'filevault compact' afterwards to reclaim disk space.")
	case "search":
		fmt.Println("filevault search [query]")
		fmt.Println()
		fmt.Println("Finds stored files whose name, path, tags or notes contain the query,")
		fmt.Println("case-insensitively. Exact name and tag matches rank first.")
		fmt.Println("An empty query lists every file. Does not require a password.")
	case "shred":
		fmt.Println("filevault shred [--force] <file>...")
		fmt.Println()
		fmt.Println("Overwrites files with the configured passes, then renames and removes them.")
		fmt.Println("On SSDs and copy-on-write file systems old blocks may survive.")
	case "tag":
		fmt.Println("filevault tag [--tag TAG]... [--note TEXT] <id|path>")
		fmt.Println()
		fmt.Println("Replaces the tags and notes of a file. Omitted flags clear the field.")
	case "diff":
		fmt.Println("filevault diff <id|path> <from> <to>")
		fmt.Println()
		fmt.Println("Shows a unified diff between two versions of a text file.")
		fmt.Println("For binary content only reports whether the versions differ.")
	case "verify":
		fmt.Println("filevault verify")
		fmt.Println()
		fmt.Println("Decrypts every stored version in memory and reports tampered or corrupted ones.")
	case "repair":
		fmt.Println("filevault repair")
		fmt.Println()
		fmt.Println("Adopts committed versions the index does not know about and drops index")
		fmt.Println("references to missing versions. Does not require a password.")
	case "passwd":
		fmt.Println("filevault passwd [--upgrade]")
		fmt.Println()
		fmt.Println("Changes the store password. Stored versions stay readable and are not rewritten.")
		fmt.Println("With --upgrade the password is kept and the key derivation cost is raised")
		fmt.Println("to the configured parameters.")
	case "status":
		fmt.Println("filevault status")
		fmt.Println()
		fmt.Println("Shows the store location, size, key derivation and stored files.")
		fmt.Println("Does not require a password.")
	case "compact":
		fmt.Println("filevault compact")
		fmt.Println()
		fmt.Println("Compacts the store database to reclaim space left by deleted versions.")
		fmt.Println("Does not require a password.")
	case "genpass":
		fmt.Println("filevault genpass [--length N]")
		fmt.Println()
		fmt.Println("Prints a random password that meets the password policy.")
	case "keyring":
		fmt.Println("filevault keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the store password in the OS keyring.")
	case "completion":
		fmt.Println("filevault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(filevault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(filevault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  filevault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
