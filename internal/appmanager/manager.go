package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"ClubLedger/internal/jobs"
	"ClubLedger/internal/ledger"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/reconcile"
	"ClubLedger/internal/resource"
	"ClubLedger/internal/serviceiface"
	"ClubLedger/internal/store"

	"gopkg.in/yaml.v3"
)

var ledgerStore store.Store

func SetStore(s store.Store) {
	ledgerStore = s
}

// GetStore returns the ledger store
func GetStore() store.Store {
	return ledgerStore
}

type constructor func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error)

var serviceConstructors = map[string]constructor{
	"logger": func(_ *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		return logger.NewLoggerService(cfg), nil
	},
	"resourcemanager": func(_ *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		return resource.NewResourceManagerService(cfg), nil
	},
	"importer": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		s := GetStore()
		if s == nil {
			return nil, fmt.Errorf("importer needs a store")
		}
		importer := jobs.NewImporter(s, reconcile.New(ledger.New()), am.Locks())
		return jobs.NewImportScheduler(cfg, importer), nil
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts services in registration order. The logger goes first so the others can
// log while starting.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		if service.Name() != "logger" {
			continue
		}
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	for _, service := range am.services {
		if service.Name() == "logger" {
			continue
		}
		lg := logger.L()
		lg.Info().Str("service", service.Name()).Msg("starting service")
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	return nil
}

func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Locks returns the registered resource manager, or a private one when none is configured.
func (am *AppManager) Locks() *resource.ResourceManager {
	if rm, ok := am.GetServiceByName("resourcemanager").(*resource.ResourceManager); ok {
		return rm
	}
	return resource.NewResourceManager()
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseServiceSequence(data)
}

func ParseServiceSequence(data []byte) ([]ServiceConfig, error) {
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	// sort by start_order
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

// AutoRegisterServices builds every known service in start order. Unknown names are
// reported and ignored.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) error {
	for _, svc := range configs {
		build, ok := serviceConstructors[svc.Name]
		if !ok {
			lg := logger.L()
			lg.Warn().Str("service", svc.Name).Msg("unknown service in sequence, ignoring")
			continue
		}
		service, err := build(am, svc.Config)
		if err != nil {
			return fmt.Errorf("build service %s: %w", svc.Name, err)
		}
		am.RegisterService(service)
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
	return nil
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
