package collector

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/service"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
)

// GatesFile - содержимое файла QUALITY_GATES_FILE
type GatesFile struct {
	Gates    []*entity.QualityGate
	Baseline Baseline
}

type gateSpec struct {
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	Description string  `mapstructure:"description"`
	Metric      string  `mapstructure:"metric"`
	Operator    string  `mapstructure:"operator"`
	Threshold   float64 `mapstructure:"threshold"`
	Enabled     *bool   `mapstructure:"enabled"`
}

// LoadGatesFile читает gates и baseline из yaml/json/toml.
// Пустой путь дает стандартный набор. Секция gates, если есть,
// полностью заменяет стандартные gates; baseline накладывается поверх значений по умолчанию.
func LoadGatesFile(path string) (*GatesFile, error) {
	result := &GatesFile{
		Gates:    service.DefaultQualityGates(),
		Baseline: DefaultBaseline(),
	}
	if strings.TrimSpace(path) == "" {
		return result, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read gates file %s: %w", path, err)
	}

	if v.IsSet("gates") {
		var specs []gateSpec
		if err := v.UnmarshalKey("gates", &specs); err != nil {
			return nil, fmt.Errorf("failed to parse gates: %w", err)
		}
		gates, err := buildGates(specs)
		if err != nil {
			return nil, err
		}
		result.Gates = gates
	}

	if v.IsSet("baseline") {
		if err := v.UnmarshalKey("baseline", &result.Baseline); err != nil {
			return nil, fmt.Errorf("failed to parse baseline: %w", err)
		}
	}

	return result, nil
}

func buildGates(specs []gateSpec) ([]*entity.QualityGate, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("gates section is empty")
	}

	seen := make(map[string]struct{}, len(specs))
	gates := make([]*entity.QualityGate, 0, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate gate id %q", spec.ID)
		}
		seen[spec.ID] = struct{}{}

		enabled := true
		if spec.Enabled != nil {
			enabled = *spec.Enabled
		}

		name := spec.Name
		if name == "" {
			name = spec.ID
		}

		gate, err := entity.NewQualityGate(
			spec.ID, name, spec.Description, spec.Metric,
			valueobject.Operator(strings.ToLower(spec.Operator)),
			spec.Threshold, enabled,
		)
		if err != nil {
			return nil, err
		}
		gates = append(gates, gate)
	}

	return gates, nil
}
