// Package main 生成模拟配置的 JSON Schema
//
// Usage:
//
//	go run ./cmd/config-schema -out data/simulation.schema.json
//
// 不指定 -out 时输出到标准输出。
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decker502/tidewater/pkg/config"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema (default: stdout)")
	flag.Parse()

	data, err := config.MarshalSimulationSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build schema: %v\n", err)
		os.Exit(1)
	}

	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := writeSchema(outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// writeSchema 先写临时文件再改名，避免留下半个文件
func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
