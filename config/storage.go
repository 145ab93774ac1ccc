package config

type StorageDriver string

const (
	StorageDriverMongo  StorageDriver = "mongo"
	StorageDriverMemory StorageDriver = "memory"
)

type Storage struct {
	// mongo（預設）或 memory（單機部署 / 測試）
	Driver StorageDriver `mapstructure:"DRIVER" json:"driver" yaml:"driver"`
}

func (s Storage) UseMemory() bool {
	return s.Driver == StorageDriverMemory
}
