// ABOUTME: Entry point for the meshterm node console
// ABOUTME: Wires identity, storage, the UDP mesh transport and the command shell

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/meshwork-dev/meshterm/internal/channel"
	"github.com/meshwork-dev/meshterm/internal/codec"
	"github.com/meshwork-dev/meshterm/internal/config"
	"github.com/meshwork-dev/meshterm/internal/console"
	"github.com/meshwork-dev/meshterm/internal/contact"
	"github.com/meshwork-dev/meshterm/internal/identity"
	"github.com/meshwork-dev/meshterm/internal/mesh"
	"github.com/meshwork-dev/meshterm/internal/prefs"
	"github.com/meshwork-dev/meshterm/internal/shell"
	"github.com/meshwork-dev/meshterm/internal/udpmesh"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = ` _      ____    _____ _____ ____  _
/ \__/|/   _\  /__ __Y  __//  __\/ \__/|
| |\/|||  /      / \ |  \  |  \/|| |\/||
| |  |||  \__    | | |  /_ |    /| |  ||
\_/  \|\____/    \_/ \____\\_/\_\\_/  \|
   ===== MeshCore Chat Terminal =====
`

const (
	identityKeyName  = "_main"
	prefsFileName    = "node_prefs"
	contactsFileName = "contacts"

	defaultMaxContacts = 100

	// startupAdvertDelay spaces the boot-time flood advert out from the
	// initial burst of console output.
	startupAdvertDelay = 1200 * time.Millisecond

	tickInterval = 5 * time.Millisecond
)

// getConfigPath returns the path to the meshterm config file.
// Priority: MESHTERM_CONFIG env var > XDG_CONFIG_HOME/meshterm/meshterm.yaml > ~/.config/meshterm/meshterm.yaml
func getConfigPath() string {
	if envPath := os.Getenv("MESHTERM_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "meshterm.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "meshterm", "meshterm.yaml")
}

// getDataPath returns the default node data directory.
// Priority: XDG_DATA_HOME/meshterm > ~/.local/share/meshterm
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "meshterm")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: meshterm <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the node console")
		fmt.Println("  init     Create a new config file interactively")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Config:    %s\n", configPath)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Data:      %s\n", cfg.Node.DataDir)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Mesh:      %s -> %s\n", cfg.Mesh.ListenAddr, cfg.Mesh.BroadcastAddr)

	if err := os.MkdirAll(cfg.Node.DataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Console first: identity provisioning may need operator input.
	std := console.NewStdioSink()
	if err := std.Start(); err != nil {
		return fmt.Errorf("starting console: %w", err)
	}
	var secondaries []console.Sink
	for _, addr := range []string{cfg.Console.Serial1Addr, cfg.Console.Serial2Addr} {
		if addr == "" {
			secondaries = append(secondaries, nil)
			continue
		}
		secondaries = append(secondaries, console.NewTCPSink("tcp "+addr, addr))
	}
	msink := console.NewMultiSink(std, secondaries...)

	id, err := loadOrGenerateIdentity(ctx, cfg.Node.DataDir, msink)
	if err != nil {
		return err
	}

	np := loadPrefs(cfg.Node.DataDir)
	for i := 1; i < console.NumPorts; i++ {
		if !np.SinkEnabled[i] {
			continue
		}
		if err := msink.EnablePort(i); err != nil {
			logger.Error("enabling console port", "port", i, "error", err)
		}
	}

	maxContacts := cfg.Node.MaxContacts
	if maxContacts == 0 {
		maxContacts = defaultMaxContacts
	}
	contacts := loadContacts(cfg.Node.DataDir, maxContacts)

	dir := channel.NewDirectory(&np.Channels)
	if err := dir.Rebuild(); err != nil {
		logger.Error("channel setup", "error", err)
	}

	clock := &mesh.SystemClock{}
	transport := udpmesh.New(udpmesh.Config{
		ListenAddr:     cfg.Mesh.ListenAddr,
		BroadcastAddr:  cfg.Mesh.BroadcastAddr,
		AckTimeoutBase: cfg.Mesh.AckTimeoutBase,
		DedupeWindow:   cfg.Mesh.DedupeWindow,
	}, id, dir, clock)

	persist := &filePersister{dataDir: cfg.Node.DataDir}
	rebootCh := make(chan struct{}, 1)
	sh := shell.New(shell.Options{
		Console:   msink,
		Prefs:     np,
		Contacts:  contacts,
		Directory: dir,
		Messenger: transport,
		Clock:     clock,
		Persist:   persist,
		Version:   version,
		Reboot:    func() { rebootCh <- struct{}{} },
	})

	transport.SetEvents(sh)
	if err := transport.Start(); err != nil {
		return err
	}
	defer transport.Stop()

	msink.Println("")
	msink.Print(banner)
	msink.Println("")
	msink.Printf("WELCOME  %s\n\r", np.NodeName)
	msink.Println(codec.EncodeHex(id.PubKey[:]))
	msink.Println("(enter 'help' for basic commands)")
	msink.Println("")
	sh.Prompt()

	if pkt, err := transport.CreateSelfAdvert(np.NodeName, np.NodeLat, np.NodeLon); err == nil {
		if err := transport.SendAdvertFlood(pkt, startupAdvertDelay); err != nil {
			logger.Error("startup advert", "error", err)
		}
	} else {
		logger.Error("building self advert", "error", err)
	}

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			if err := persist.SavePrefs(np); err != nil {
				logger.Error("saving preferences", "error", err)
			}
			if err := persist.SaveContacts(contacts); err != nil {
				logger.Error("saving contacts", "error", err)
			}
			return nil
		case <-rebootCh:
			return restartSelf(logger)
		case <-tick.C:
			sh.Tick()
		}
	}
}

// loadOrGenerateIdentity loads the node key, prompting the operator to
// press ENTER before generating a fresh one on first boot.
func loadOrGenerateIdentity(ctx context.Context, dataDir string, m *console.MultiSink) (*identity.LocalIdentity, error) {
	store := identity.NewStore(dataDir)
	id, err := store.Load(identityKeyName)
	if err == nil {
		return id, nil
	}

	m.Println("Press ENTER to generate key:")
	if err := waitForEnter(ctx, m); err != nil {
		return nil, err
	}
	id, err = identity.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	if err := store.Save(identityKeyName, id); err != nil {
		return nil, fmt.Errorf("saving identity: %w", err)
	}
	return id, nil
}

func waitForEnter(ctx context.Context, m *console.MultiSink) error {
	for {
		if b, ok := m.ReadByte(); ok && (b == '\r' || b == '\n') {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// loadPrefs reads persisted preferences, falling back to defaults when no
// file exists yet.
func loadPrefs(dataDir string) *prefs.NodePrefs {
	f, err := os.Open(filepath.Join(dataDir, prefsFileName))
	if err != nil {
		return prefs.Default()
	}
	defer f.Close()
	return prefs.Read(f)
}

func loadContacts(dataDir string, capacity int) *contact.Store {
	s := contact.NewStore(capacity)
	f, err := os.Open(filepath.Join(dataDir, contactsFileName))
	if err != nil {
		return s
	}
	defer f.Close()
	n := s.Load(f)
	slog.Default().Info("loaded contacts", "count", n)
	return s
}

// filePersister writes node state under the data directory, via a rename
// so a crash mid-write cannot corrupt the previous file.
type filePersister struct {
	dataDir string
}

func (p *filePersister) SavePrefs(np *prefs.NodePrefs) error {
	return p.atomicWrite(prefsFileName, func(f *os.File) error {
		return np.Write(f)
	})
}

func (p *filePersister) SaveContacts(s *contact.Store) error {
	return p.atomicWrite(contactsFileName, func(f *os.File) error {
		return s.Save(f)
	})
}

func (p *filePersister) atomicWrite(name string, write func(*os.File) error) error {
	path := filepath.Join(p.dataDir, name)
	tmp, err := os.CreateTemp(p.dataDir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// restartSelf re-execs the current binary, standing in for a device
// reboot. State was flushed by the reboot command handler.
func restartSelf(logger *slog.Logger) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	logger.Info("rebooting", "exe", exe)
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		// exec is not available everywhere; fall back to a child.
		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("restarting: %w", err)
		}
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Logs go to stderr: stdout belongs to the console shell.
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{level: h.level, attrs: newAttrs}
}

func (h *colorHandler) WithGroup(_ string) slog.Handler {
	return h
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("meshterm configuration setup")
	fmt.Println("============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Node Configuration ---")
	dataDir := prompt(reader, "Data directory", defaultDataPath)

	fmt.Println("\n--- Mesh Configuration ---")
	listenAddr := prompt(reader, "UDP listen address", "0.0.0.0:17171")
	broadcastAddr := prompt(reader, "UDP broadcast address", "255.255.255.255:17171")

	fmt.Println("\n--- Console Configuration ---")
	serial1 := prompt(reader, "Serial port 1 TCP address (empty to skip)", "")
	serial2 := prompt(reader, "Serial port 2 TCP address (empty to skip)", "")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# meshterm configuration\n")
	cfg.WriteString("# Generated by meshterm init\n\n")

	cfg.WriteString("node:\n")
	cfg.WriteString(fmt.Sprintf("  data_dir: \"%s\"\n", dataDir))
	cfg.WriteString("\n")

	cfg.WriteString("mesh:\n")
	cfg.WriteString(fmt.Sprintf("  listen_addr: \"%s\"\n", listenAddr))
	cfg.WriteString(fmt.Sprintf("  broadcast_addr: \"%s\"\n", broadcastAddr))
	cfg.WriteString("\n")

	cfg.WriteString("console:\n")
	if serial1 != "" {
		cfg.WriteString(fmt.Sprintf("  serial1_addr: \"%s\"\n", serial1))
	}
	if serial2 != "" {
		cfg.WriteString(fmt.Sprintf("  serial2_addr: \"%s\"\n", serial2))
	}
	if serial1 == "" && serial2 == "" {
		cfg.WriteString("  {}\n")
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the node console:")
	fmt.Printf("  meshterm serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
