// Package blnetctl is a command line client for the blnet-bridge HTTP API.
package blnetctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/xi784/ha-blnet/internal/platform"
	"github.com/xi784/ha-blnet/internal/version"
)

// apiResponse mirrors the bridge response envelope
type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CommandArgs represents parsed command line arguments
type CommandArgs struct {
	Command string
	Args    []string
	Config  *Config
}

// CLI runs blnetctl commands against a bridge
type CLI struct {
	config     *Config
	httpClient HTTPClient
	stdout     io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(cfg *Config, httpClient HTTPClient, stdout io.Writer) *CLI {
	return &CLI{
		config:     cfg,
		httpClient: httpClient,
		stdout:     stdout,
	}
}

// ParseArgsWithFlagSet parses command line arguments. Configuration is
// only loaded when a command will talk to the server.
func ParseArgsWithFlagSet(args []string, fs *pflag.FlagSet) (*CommandArgs, error) {
	versionFlag := fs.Bool("version", false, "Show version and exit")
	helpFlag := fs.BoolP("help", "h", false, "Show help")

	cfg := NewConfig()
	cfg.AddFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *versionFlag {
		return &CommandArgs{Command: "version", Config: cfg}, nil
	}

	remaining := fs.Args()
	if *helpFlag || len(remaining) == 0 {
		return &CommandArgs{Command: "help", Config: cfg}, nil
	}

	if err := cfg.LoadConfigWithFlagSet(fs); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &CommandArgs{
		Command: remaining[0],
		Args:    remaining[1:],
		Config:  cfg,
	}, nil
}

// Main parses os.Args and runs the command.
func Main() {
	cmdArgs, err := ParseArgsWithFlagSet(os.Args[1:], pflag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}

	cli := NewCLI(cmdArgs.Config, &http.Client{}, os.Stdout)
	if err := cli.Execute(cmdArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}

// Execute runs the specified command
func (c *CLI) Execute(cmdArgs *CommandArgs) error {
	switch cmdArgs.Command {
	case "version":
		version.Fprint(c.stdout)
		return nil
	case "help":
		c.showHelp()
		return nil
	case "list":
		return c.cmdList(cmdArgs.Args)
	case "status":
		return c.cmdStatus(cmdArgs.Args)
	case "on":
		return c.cmdSwitch(cmdArgs.Args, "on")
	case "off":
		return c.cmdSwitch(cmdArgs.Args, "off")
	case "poll":
		return c.cmdPoll(cmdArgs.Args)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmdArgs.Command)
	}
}

func (c *CLI) showHelp() {
	//nolint:errcheck
	fmt.Fprintf(c.stdout, `blnetctl - Command line tool for BL-NET switch entities

Usage: blnetctl [flags] <command> [arguments]

Commands:
  list              List all entities
  status <entity>   Show one entity
  on <entity>       Turn an entity on (for mode entities: automatic)
  off <entity>      Turn an entity off (for mode entities: manual)
  poll              Refresh all entities now
  help              Show this help
  version           Show version information

Flags:
  --config string       Config file to use (default "%s")
  -h, --help            Show help
  -s, --server-url      blnet-bridge API URL (default "%s")
  --version             Show version and exit
`, getDefaultConfigFile(), defaultServerURL)
}

func (c *CLI) cmdList(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: list takes no arguments", ErrUsage)
	}

	var snaps []platform.Snapshot
	if err := c.call(http.MethodGet, "/entities", nil, &snaps); err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tNAME\tSTATE\tASSUMED") //nolint:errcheck
	for _, snap := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", snap.UniqueID, snap.Name, snap.State, snap.AssumedState) //nolint:errcheck
	}
	return w.Flush()
}

func (c *CLI) cmdStatus(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: status requires exactly one entity argument", ErrUsage)
	}

	var snap platform.Snapshot
	if err := c.call(http.MethodGet, "/entities/"+args[0], nil, &snap); err != nil {
		return err
	}
	c.printSnapshot(snap)
	return nil
}

func (c *CLI) cmdSwitch(args []string, state string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s requires exactly one entity argument", ErrUsage, state)
	}

	body, err := json.Marshal(map[string]string{"state": state})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var snap platform.Snapshot
	if err := c.call(http.MethodPost, "/entities/"+args[0], body, &snap); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s is now %s\n", snap.UniqueID, snap.State) //nolint:errcheck
	return nil
}

func (c *CLI) cmdPoll(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: poll takes no arguments", ErrUsage)
	}

	var result struct {
		Updated int `json:"updated"`
	}
	if err := c.call(http.MethodPost, "/poll", nil, &result); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%d entities updated\n", result.Updated) //nolint:errcheck
	return nil
}

func (c *CLI) printSnapshot(snap platform.Snapshot) {
	fmt.Fprintf(c.stdout, "Entity: %s\n", snap.UniqueID)      //nolint:errcheck
	fmt.Fprintf(c.stdout, "Name: %s\n", snap.Name)            //nolint:errcheck
	fmt.Fprintf(c.stdout, "Kind: %s\n", snap.Kind)            //nolint:errcheck
	fmt.Fprintf(c.stdout, "State: %s\n", snap.State)          //nolint:errcheck
	fmt.Fprintf(c.stdout, "Icon: %s\n", snap.Icon)            //nolint:errcheck
	fmt.Fprintf(c.stdout, "Assumed: %t\n", snap.AssumedState) //nolint:errcheck
	for _, key := range sortedKeys(snap.Attributes) {
		fmt.Fprintf(c.stdout, "  %s: %s\n", key, snap.Attributes[key]) //nolint:errcheck
	}
}

// call performs a request and decodes the data of the response envelope
// into out.
func (c *CLI) call(method, path string, body []byte, out any) error {
	url := strings.TrimSuffix(c.config.ServerURL, "/") + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: request failed with status %d", ErrAPI, resp.StatusCode)
		}
		return fmt.Errorf("error parsing response: %w", err)
	}

	if apiResp.Status != "ok" {
		return fmt.Errorf("%w: %s", ErrAPI, apiResp.Message)
	}

	if out != nil && len(apiResp.Data) > 0 {
		if err := json.Unmarshal(apiResp.Data, out); err != nil {
			return fmt.Errorf("error parsing data: %w", err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
