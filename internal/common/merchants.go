package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loyalty-ledger-go/internal/models"

	"gopkg.in/yaml.v2"
)

type MerchantSeed struct {
	Id   string `yaml:"id"`
	Name string `yaml:"name"`
}

type MerchantsConfig struct {
	Merchants []MerchantSeed `yaml:"merchants"`
}

// Identity returns the ledger identity of the seeded merchant.
func (m MerchantSeed) Identity() models.Identity {
	return models.Identity(strings.TrimSpace(m.Id))
}

func LoadMerchantConfig(merchantsFile string) ([]MerchantSeed, error) {
	var merchantsPath string
	if filepath.IsAbs(merchantsFile) {
		merchantsPath = merchantsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		merchantsPath = filepath.Join(wd, merchantsFile)
	}

	data, err := os.ReadFile(merchantsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", merchantsFile, err)
	}

	var config MerchantsConfig
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", merchantsFile, err)
	}

	seen := make(map[models.Identity]bool, len(config.Merchants))
	for i, merchant := range config.Merchants {
		id := merchant.Identity()
		if !id.Valid() {
			return nil, fmt.Errorf("merchant at index %d missing id", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("merchant %s listed more than once", id)
		}
		seen[id] = true
	}

	return config.Merchants, nil
}
