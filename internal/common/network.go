/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"quickdot-custody-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// DefaultNetwork is the network used when no network file is present.
func DefaultNetwork() models.NetworkConfig {
	return models.NetworkConfig{
		Name:               "Polkadot",
		Symbol:             "DOT",
		Decimals:           10,
		DisplayDecimals:    4,
		AddressHRP:         "dot",
		CoinType:           354,
		EstimatedFee:       "0.0100",
		ExistentialDeposit: "1",
	}
}

// LoadNetworkConfig reads the network description from a YAML file. Relative
// paths are resolved against the working directory. A missing file yields
// DefaultNetwork; fields left empty in the file take their default values.
func LoadNetworkConfig(filename string) (models.NetworkConfig, error) {
	network := DefaultNetwork()
	if filename == "" {
		return network, nil
	}

	path := filename
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return models.NetworkConfig{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, filename)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("Network file not found, using defaults",
			zap.String("file", path),
			zap.String("network", network.Name))
		return network, nil
	}
	if err != nil {
		return models.NetworkConfig{}, fmt.Errorf("failed to read network file %s: %w", path, err)
	}

	var parsed models.NetworkConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return models.NetworkConfig{}, fmt.Errorf("failed to parse network file: %w", err)
	}
	mergeNetwork(&network, parsed)

	if err := validateNetwork(network); err != nil {
		return models.NetworkConfig{}, err
	}

	zap.L().Info("Loaded network configuration",
		zap.String("file", path),
		zap.String("network", network.Name),
		zap.String("symbol", network.Symbol))
	return network, nil
}

func mergeNetwork(dst *models.NetworkConfig, src models.NetworkConfig) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Symbol != "" {
		dst.Symbol = src.Symbol
	}
	if src.Decimals != 0 {
		dst.Decimals = src.Decimals
	}
	if src.DisplayDecimals != 0 {
		dst.DisplayDecimals = src.DisplayDecimals
	}
	if src.AddressHRP != "" {
		dst.AddressHRP = src.AddressHRP
	}
	if src.CoinType != 0 {
		dst.CoinType = src.CoinType
	}
	if src.EstimatedFee != "" {
		dst.EstimatedFee = src.EstimatedFee
	}
	if src.ExistentialDeposit != "" {
		dst.ExistentialDeposit = src.ExistentialDeposit
	}
}

func validateNetwork(n models.NetworkConfig) error {
	if n.Decimals < 0 || n.Decimals > 18 {
		return fmt.Errorf("network decimals must be between 0 and 18, got %d", n.Decimals)
	}
	if n.DisplayDecimals < 0 || n.DisplayDecimals > n.Decimals {
		return fmt.Errorf("network display_decimals must be between 0 and decimals (%d), got %d", n.Decimals, n.DisplayDecimals)
	}
	fee, err := decimal.NewFromString(n.EstimatedFee)
	if err != nil || fee.IsNegative() {
		return fmt.Errorf("network estimated_fee is invalid: %q", n.EstimatedFee)
	}
	if _, err := decimal.NewFromString(n.ExistentialDeposit); err != nil {
		return fmt.Errorf("network existential_deposit is invalid: %q", n.ExistentialDeposit)
	}
	return nil
}
