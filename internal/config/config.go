package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/log"
)

// App describes the dApp to wallets during pairing.
type App struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Icons       []string `yaml:"icons"`
}

// Redis credential for the optional redis-backed session store.
type Redis struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
	DB      int    `yaml:"db"`
}

func (c *Redis) Addr() string {
	return c.Address + ":" + c.Port
}

// Configuration struct
type Configuration struct {
	App                    App    `yaml:"app"`
	ChainID                uint64 `yaml:"chain_id"`
	WalletConnectProjectID string `yaml:"walletconnect_project_id"`
	RPCNode                string `yaml:"rpc_node"`
	WalletEndpoint         string `yaml:"wallet_endpoint"`
	Redis                  *Redis `yaml:"redis"`
	SentryDSN              string `yaml:"sentry_dsn"`
	LogLevel               int    `yaml:"log_level"`
}

// Read loads the configuration file from the given path.
func Read(path string) (*Configuration, error) {
	log.Infof("Loading configuration file from %s", path)
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	var conf Configuration
	if err := yaml.Unmarshal(dat, &conf); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}
	if conf.ChainID == 0 {
		conf.ChainID = 1
	}
	return &conf, nil
}
