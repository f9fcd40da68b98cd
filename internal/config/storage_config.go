package config

// StorageConfig defines configuration for the baseline database and
// the event archive.
type StorageConfig struct {
	DatabasePath     string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
	ArchivePath      string `json:"archive_path,omitempty" yaml:"archive_path,omitempty"`
	RetentionDays    int    `json:"retention_days,omitempty" yaml:"retention_days,omitempty" validate:"omitempty,min=1"`
	CompressionCodec string `json:"compression_codec,omitempty" yaml:"compression_codec,omitempty" validate:"omitempty,oneof=zstd gzip snappy none"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DatabasePath:     DefaultStorageDatabasePath,
		ArchivePath:      DefaultStorageArchivePath,
		RetentionDays:    DefaultStorageRetentionDays,
		CompressionCodec: DefaultStorageCompressionCodec,
	}
}
