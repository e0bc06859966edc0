package embedded

import (
	"testing"
	"testing/fstest"
)

// TestIsInitialized 测试初始化状态检测
func TestIsInitialized(t *testing.T) {
	initialized = false
	if IsInitialized() {
		t.Error("Expected IsInitialized() to return false before Init()")
	}

	Init(fstest.MapFS{})
	if !IsInitialized() {
		t.Error("Expected IsInitialized() to return true after Init()")
	}

	// 重置状态以避免影响其他测试
	initialized = false
}

// TestReadFileNotInitialized 测试未初始化时调用 ReadFile
func TestReadFileNotInitialized(t *testing.T) {
	initialized = false

	if _, err := ReadFile("data/simulation.yaml"); err == nil {
		t.Error("Expected error when not initialized")
	}
}

func TestReadFile(t *testing.T) {
	Init(fstest.MapFS{
		"data/simulation.yaml": &fstest.MapFile{Data: []byte("pool:\n  capacity: 10\n")},
	})
	defer func() { initialized = false }()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain", "data/simulation.yaml", false},
		{"dot prefix", "./data/simulation.yaml", false},
		{"missing", "data/missing.yaml", true},
		{"bad prefix", "assets/simulation.yaml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFile(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ReadFile(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if Exists(tt.path) == tt.wantErr {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, !tt.wantErr, !tt.wantErr)
			}
		})
	}
}
