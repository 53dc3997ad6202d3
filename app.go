package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"relay/internal/agent"
	"relay/internal/bus"
	"relay/internal/channel"
	"relay/internal/config"
	"relay/internal/llm"
	"relay/internal/memory"
	"relay/internal/scheduler"
	"relay/internal/security"
	"relay/internal/skill"
	"relay/internal/tool"
)

const (
	keyringPlaceholder      = "[keyring]"
	secretNameLLMKey        = "llm_api_key"
	secretNameTelegramToken = "telegram_token"
)

// App wires the runtime together: config, secrets, memory, the event bus,
// and every component that attaches to it.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       *config.Config
	cfgLoader *config.Loader
	bus       *bus.Bus
	agent     *agent.Agent
	chanMgr   *channel.Manager
	bridge    *channel.Bridge
	mem       memory.Memory
	keyStore  *security.KeyStore
	sanitizer *security.Sanitizer
	router    *llm.Router
	sched     *scheduler.Scheduler

	browserTool *tool.BrowserTool
	skillLoader *skill.Loader
}

// NewApp creates the application shell around a fresh bus.
func NewApp() *App {
	return &App{
		bus: bus.New(),
	}
}

// Startup loads config and brings every component online. configPath
// overrides the default config location when non-empty.
func (a *App) Startup(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	a.ctx = ctx
	a.cancel = cancel

	var (
		loader *config.Loader
		err    error
	)
	if configPath != "" {
		loader, err = config.NewLoaderAt(configPath)
	} else {
		loader, err = config.NewLoader()
	}
	if err != nil {
		return fmt.Errorf("create config loader: %w", err)
	}
	a.cfgLoader = loader

	cfg, err := loader.Load()
	if err != nil {
		log.Printf("failed to load config, using defaults: %v", err)
		cfg = config.Defaults()
	}
	a.cfg = cfg

	ks, err := security.NewKeyStore(nil)
	if err != nil {
		log.Printf("warning: failed to create key store: %v (secrets will stay in config file)", err)
	}
	a.keyStore = ks
	a.resolveSecrets()

	a.sanitizer = security.NewSanitizer(cfg.Security.PIIFiltering)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home directory: %w", err)
	}
	dbPath := cfg.Memory.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(home, ".relay", "memory.db")
	}
	mem, err := memory.NewSQLiteMemory(dbPath)
	if err != nil {
		return fmt.Errorf("initialize memory: %w", err)
	}
	a.mem = mem

	if err := memory.AttachMaintenance(a.bus, a.mem, cfg.Memory.RetentionDays); err != nil {
		return fmt.Errorf("attach memory maintenance: %w", err)
	}

	registry, err := a.buildRegistry(home)
	if err != nil {
		return err
	}

	provider, err := a.buildProvider()
	if err != nil {
		return err
	}
	a.router = llm.NewRouter(provider, cfg.LLM.TimeoutSecs)
	if err := a.router.Attach(a.bus); err != nil {
		return fmt.Errorf("attach llm router: %w", err)
	}

	runner := tool.NewRunner(registry, cfg.Security.Sandbox.TimeoutSecs)
	if err := runner.Attach(a.bus); err != nil {
		return fmt.Errorf("attach tool runner: %w", err)
	}

	a.agent = agent.New(cfg.Agent, a.bus, registry, a.mem)
	if err := a.agent.Attach(ctx, a.bus); err != nil {
		return fmt.Errorf("attach agent: %w", err)
	}

	if err := a.startChannels(ctx); err != nil {
		return err
	}

	// Surface agent failures in the log even when nobody is watching a channel.
	if err := a.bus.RegisterHandler(bus.SystemEvent, func(e bus.Event) {
		if e.Payload["kind"] == "agent.error" {
			log.Printf("[app] agent error: %v", e.Payload["error"])
		}
	}); err != nil {
		return fmt.Errorf("attach error logger: %w", err)
	}

	a.sched = scheduler.New(cfg.Scheduler, a.bus)
	a.sched.Start(ctx)

	log.Println("[app] runtime started")
	return nil
}

// Shutdown stops every component in reverse dependency order.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.chanMgr != nil {
		a.chanMgr.StopAll(context.Background())
	}
	if a.browserTool != nil {
		a.browserTool.Close()
	}
	if a.mem != nil {
		a.mem.Close()
	}
}

func (a *App) buildProvider() (llm.Provider, error) {
	if a.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM API key not configured (set llm.api_key in %s)", a.cfgLoader.FilePath())
	}

	provider, err := llm.NewProvider(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	if a.cfg.FallbackLLM != nil && a.cfg.FallbackLLM.APIKey != "" {
		fallback, err := llm.NewProvider(*a.cfg.FallbackLLM)
		if err != nil {
			log.Printf("warning: fallback provider unavailable: %v", err)
		} else {
			provider = llm.NewFallbackProvider(provider, fallback)
		}
	}
	return provider, nil
}

func (a *App) buildRegistry(home string) (*tool.Registry, error) {
	registry := tool.NewRegistry()

	workspaceDir := a.cfg.Security.Sandbox.WorkspaceDir
	if workspaceDir == "" {
		workspaceDir = filepath.Join(home, ".relay", "workspace")
	}
	if err := security.ValidateWorkspace(workspaceDir); err != nil {
		return nil, fmt.Errorf("workspace directory: %w", err)
	}

	registry.Register(tool.NewShellTool(tool.ShellConfig{
		WorkspaceDir:   workspaceDir,
		TimeoutSecs:    a.cfg.Security.Sandbox.TimeoutSecs,
		MaxOutputChars: a.cfg.Security.Sandbox.MaxOutputChars,
		SandboxEnabled: a.cfg.Security.Sandbox.Enabled,
	}))
	registry.Register(tool.NewWebSearchTool())
	registry.Register(tool.NewFilesystemTool(workspaceDir))

	if a.cfg.Browser.Enabled {
		a.browserTool = tool.NewBrowserTool(a.cfg.Browser)
		registry.Register(a.browserTool)
	}

	if a.cfg.Plugins.Enabled {
		skillsDir := a.cfg.Plugins.SkillsDir
		if skillsDir == "" {
			skillsDir = filepath.Join(home, ".relay", "skills")
		}
		if err := os.MkdirAll(skillsDir, 0755); err != nil {
			log.Printf("failed to create skills directory: %v", err)
		}
		a.skillLoader = skill.NewLoader(skillsDir, a.cfg.Plugins.TimeoutSecs, a.cfg.Plugins.SandboxEnabled)
		skills, err := a.skillLoader.LoadAll(a.cfg.Plugins.EnabledSkills)
		if err != nil {
			log.Printf("failed to load skills: %v", err)
		}
		for _, s := range skills {
			registry.Register(s)
		}
		if len(skills) > 0 {
			log.Printf("[app] loaded %d skills", len(skills))
		}
	}

	return registry, nil
}

func (a *App) startChannels(ctx context.Context) error {
	a.chanMgr = channel.NewManager()

	if a.cfg.Channels.Console {
		a.chanMgr.Register(channel.NewConsoleChannel())
	}
	if a.cfg.Channels.Telegram != nil && a.cfg.Channels.Telegram.Token != "" {
		a.chanMgr.Register(channel.NewTelegramChannel(channel.TelegramConfig{
			Token:      a.cfg.Channels.Telegram.Token,
			AllowedIDs: a.cfg.Channels.Telegram.AllowedIDs,
		}))
	}

	a.bridge = channel.NewBridge(a.chanMgr, a.bus, a.sanitizer)
	if err := a.bridge.Attach(ctx); err != nil {
		return fmt.Errorf("attach channel bridge: %w", err)
	}

	if err := a.chanMgr.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	return nil
}

// resolveSecrets loads secrets from the OS keyring into in-memory config.
// On first run, migrates plaintext secrets from config.json to the keyring.
func (a *App) resolveSecrets() {
	if a.keyStore == nil {
		return
	}

	migrated := false

	switch {
	case a.cfg.LLM.APIKey == keyringPlaceholder:
		if val, err := a.keyStore.Get(secretNameLLMKey); err == nil {
			a.cfg.LLM.APIKey = val
		} else {
			log.Printf("warning: failed to read LLM key from keyring: %v", err)
		}
	case a.cfg.LLM.APIKey != "":
		if err := a.keyStore.Set(secretNameLLMKey, a.cfg.LLM.APIKey); err == nil {
			migrated = true
			log.Println("migrated LLM API key to secure storage")
		}
	}

	if a.cfg.Channels.Telegram != nil {
		switch {
		case a.cfg.Channels.Telegram.Token == keyringPlaceholder:
			if val, err := a.keyStore.Get(secretNameTelegramToken); err == nil {
				a.cfg.Channels.Telegram.Token = val
			} else {
				log.Printf("warning: failed to read Telegram token from keyring: %v", err)
			}
		case a.cfg.Channels.Telegram.Token != "":
			if err := a.keyStore.Set(secretNameTelegramToken, a.cfg.Channels.Telegram.Token); err == nil {
				migrated = true
				log.Println("migrated Telegram token to secure storage")
			}
		}
	}

	if migrated {
		if err := a.saveConfig(); err != nil {
			log.Printf("warning: failed to save config after secret migration: %v", err)
		}
	}
}

// saveConfig writes config to disk with secrets replaced by [keyring]
// placeholders. In-memory a.cfg always retains the real keys.
func (a *App) saveConfig() error {
	if a.keyStore == nil {
		return a.cfgLoader.Save(a.cfg)
	}

	if a.cfg.LLM.APIKey != "" && a.cfg.LLM.APIKey != keyringPlaceholder {
		if err := a.keyStore.Set(secretNameLLMKey, a.cfg.LLM.APIKey); err != nil {
			log.Printf("warning: failed to store LLM key in keyring: %v", err)
			return a.cfgLoader.Save(a.cfg)
		}
	}
	if a.cfg.Channels.Telegram != nil && a.cfg.Channels.Telegram.Token != "" && a.cfg.Channels.Telegram.Token != keyringPlaceholder {
		if err := a.keyStore.Set(secretNameTelegramToken, a.cfg.Channels.Telegram.Token); err != nil {
			log.Printf("warning: failed to store Telegram token in keyring: %v", err)
			return a.cfgLoader.Save(a.cfg)
		}
	}

	cfgForDisk := *a.cfg
	if cfgForDisk.LLM.APIKey != "" {
		cfgForDisk.LLM.APIKey = keyringPlaceholder
	}
	if cfgForDisk.Channels.Telegram != nil && cfgForDisk.Channels.Telegram.Token != "" {
		tgCopy := *cfgForDisk.Channels.Telegram
		tgCopy.Token = keyringPlaceholder
		cfgForDisk.Channels.Telegram = &tgCopy
	}

	return a.cfgLoader.Save(&cfgForDisk)
}
