package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockFileOperations is a mock implementation of the FileOperations interface
type MockFileOperations struct {
	mock.Mock
}

func (m *MockFileOperations) FileExists(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *MockFileOperations) ReadFile(path string) (string, error) {
	args := m.Called(path)
	return args.String(0), args.Error(1)
}

func (m *MockFileOperations) ReadFileRaw(path string) ([]byte, error) {
	args := m.Called(path)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileOperations) WriteFile(path string, data string) error {
	args := m.Called(path, data)
	return args.Error(0)
}

func (m *MockFileOperations) ReadJsonFile(path string, out interface{}) error {
	args := m.Called(path, out)
	return args.Error(0)
}

func (m *MockFileOperations) WriteJsonFile(path string, v interface{}) error {
	args := m.Called(path, v)
	return args.Error(0)
}

func (m *MockFileOperations) ReadYamlFile(path string, out interface{}) error {
	args := m.Called(path, out)
	return args.Error(0)
}
