// Command keyboxctl is a thin flag-based driver over internal/keybox: one
// subcommand per facade operation, demonstrating the core engine without
// implementing the interactive shell or password generator spec.md leaves
// to external collaborators.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/rbrich/keybox/internal/cipher"
	"github.com/rbrich/keybox/internal/ioformat"
	"github.com/rbrich/keybox/internal/keybox"
)

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createPath := createCmd.String("f", defaultPath(), "path to keybox file")

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	addPath := addCmd.String("f", defaultPath(), "path to keybox file")
	addSite := addCmd.String("site", "", "site name")
	addUser := addCmd.String("user", "", "username")
	addURL := addCmd.String("url", "", "url")
	addTags := addCmd.String("tags", "", "space-delimited tags")
	addNote := addCmd.String("note", "", "note")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listPath := listCmd.String("f", defaultPath(), "path to keybox file")
	listQuery := listCmd.String("q", "", "search query, optionally column:value")

	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	deletePath := deleteCmd.String("f", defaultPath(), "path to keybox file")
	deleteSite := deleteCmd.String("site", "", "site of the record to delete (first match)")

	passwdCmd := flag.NewFlagSet("passwd", flag.ExitOnError)
	passwdPath := passwdCmd.String("f", defaultPath(), "path to keybox file")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importPath := importCmd.String("f", defaultPath(), "path to keybox file")
	importPlain := importCmd.Bool("plain", false, "source is the plain-text format")
	importJSON := importCmd.Bool("json", false, "source is JSON")
	importIn := importCmd.String("i", "", "input file (default stdin)")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportPath := exportCmd.String("f", defaultPath(), "path to keybox file")
	exportPlain := exportCmd.Bool("plain", false, "emit the plain-text format")
	exportJSON := exportCmd.Bool("json", false, "emit JSON")
	exportOut := exportCmd.String("o", "", "output file (default stdout)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "create":
		_ = createCmd.Parse(os.Args[2:])
		err = cmdCreate(*createPath)
	case "add":
		_ = addCmd.Parse(os.Args[2:])
		err = cmdAdd(*addPath, *addSite, *addUser, *addURL, *addTags, *addNote)
	case "list":
		_ = listCmd.Parse(os.Args[2:])
		err = cmdList(*listPath, *listQuery)
	case "delete":
		_ = deleteCmd.Parse(os.Args[2:])
		err = cmdDelete(*deletePath, *deleteSite)
	case "passwd":
		_ = passwdCmd.Parse(os.Args[2:])
		err = cmdPasswd(*passwdPath)
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		err = cmdImport(*importPath, *importIn, *importPlain, *importJSON)
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		err = cmdExport(*exportPath, *exportOut, *exportPlain, *exportJSON)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "keyboxctl:", err)
		exitCode := 1
		var authErr *keybox.AuthError
		if errors.As(err, &authErr) {
			exitCode = 2
		}
		os.Exit(exitCode)
	}
}

func usage() {
	fmt.Print(`keyboxctl commands:

  create  -f path
  add     -f path --site example.com --user alice [--url U --tags "a b" --note N]
  list    -f path [-q query]
  delete  -f path --site example.com
  passwd  -f path
  import  -f path [--plain|--json] [-i path]
  export  -f path [--plain|--json] [-o path]

import and export require --plain or --json; importing from or exporting
to another keybox file is not supported.
`)
}

func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "keybox.safe"
	}
	return home + "/.keybox/keybox.safe"
}

// stdinProvider prompts on the terminal for Open, and twice (with match
// verification) for Create, per keybox.PassphraseProvider.
type stdinProvider struct{}

func (stdinProvider) Prompt() ([]byte, error) {
	return readPassphrase("Passphrase: ")
}

func (stdinProvider) Confirm() ([]byte, error) {
	p1, err := readPassphrase("New passphrase: ")
	if err != nil {
		return nil, err
	}
	p2, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	if string(p1) != string(p2) {
		cipher.Zero(p1)
		cipher.Zero(p2)
		return nil, errors.New("passphrases do not match")
	}
	cipher.Zero(p2)
	return p1, nil
}

func readPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return pw, err
}

func cmdCreate(path string) error {
	provider := stdinProvider{}
	pass, err := provider.Confirm()
	if err != nil {
		return err
	}
	defer cipher.Zero(pass)
	k, err := keybox.Create(path, pass, nil)
	if err != nil {
		return err
	}
	defer k.Close()
	fmt.Println("created", path)
	return nil
}

func cmdAdd(path, site, user, url, tags, note string) error {
	if site == "" {
		return errors.New("--site is required")
	}
	k, err := keybox.Open(path, stdinProvider{})
	if err != nil {
		return err
	}
	defer k.Close()

	pw, err := readPassphrase("Password for new record: ")
	if err != nil {
		return err
	}
	defer cipher.Zero(pw)

	_, err = k.AddRecord(map[string]string{
		"site": site, "user": user, "url": url, "tags": tags, "note": note,
	}, pw)
	if err != nil {
		return err
	}
	return k.Save()
}

func cmdList(path, query string) error {
	k, err := keybox.Open(path, stdinProvider{})
	if err != nil {
		return err
	}
	defer k.Close()

	for _, r := range k.Find(query) {
		fmt.Printf("%s\t%s\t%s\n", r.Get("site"), r.Get("user"), r.Get("url"))
	}
	return nil
}

func cmdDelete(path, site string) error {
	if site == "" {
		return errors.New("--site is required")
	}
	k, err := keybox.Open(path, stdinProvider{})
	if err != nil {
		return err
	}
	defer k.Close()

	matches := k.Find("site:" + site)
	if len(matches) == 0 {
		return fmt.Errorf("no record with site %q", site)
	}
	k.DeleteRecord(matches[0])
	return k.Save()
}

func cmdPasswd(path string) error {
	k, err := keybox.Open(path, stdinProvider{})
	if err != nil {
		return err
	}
	defer k.Close()

	newPass, err := stdinProvider{}.Confirm()
	if err != nil {
		return err
	}
	defer cipher.Zero(newPass)
	return k.ChangePassphrase(newPass)
}

func cmdImport(path, inPath string, plain, json bool) error {
	k, err := keybox.Open(path, stdinProvider{})
	if err != nil {
		return err
	}
	defer k.Close()

	in := os.Stdin
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	switch {
	case plain:
		err = ioformat.ImportPlain(k, bufio.NewReader(in))
	case json:
		err = ioformat.ImportJSON(k, bufio.NewReader(in))
	default:
		return errors.New("importing from another keybox file is not wired into this demonstration driver; use --plain or --json")
	}
	if err != nil {
		return err
	}
	return k.Save()
}

func cmdExport(path, outPath string, plain, json bool) error {
	k, err := keybox.Open(path, stdinProvider{})
	if err != nil {
		return err
	}
	defer k.Close()

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch {
	case plain:
		return ioformat.ExportPlain(out, k)
	case json:
		return ioformat.ExportJSON(out, k)
	default:
		return errors.New("--plain or --json is required")
	}
}
