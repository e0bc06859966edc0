package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SimulationSchema 根据 SimulationConfig 的 json/jsonschema 标签生成 JSON Schema
// 编辑器可以用它校验 data/simulation.yaml
//
// json 标签与 yaml 标签同名，所有字段均为可选（缺省时保留默认值）。
func SimulationSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(SimulationConfig))
	schema.Title = "Tidewater Simulation Config"
	schema.Description = "Validates data/simulation.yaml"
	return schema
}

// MarshalSimulationSchema 返回缩进格式的 JSON Schema（以换行结尾）
func MarshalSimulationSchema() ([]byte, error) {
	data, err := json.MarshalIndent(SimulationSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
