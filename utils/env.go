package utils

import "os"

var (
	CATALOG_NAME       = GetEnvOrDefault("CATALOG_NAME", "icecatalog")
	WAREHOUSE_LOCATION = GetEnvOrDefault("WAREHOUSE_LOCATION", "warehouse")

	// memory, redis, or crdb
	METASTORE = GetEnvOrDefault("METASTORE", "memory")
	// disk or s3
	FILESTORE = GetEnvOrDefault("FILESTORE", "disk")
	DISK_ROOT = GetEnvOrDefault("DISK_ROOT", ".")

	CRDB_DSN = os.Getenv("CRDB_DSN")

	REDIS_ADDR     = os.Getenv("REDIS_ADDR")
	REDIS_PASSWORD = os.Getenv("REDIS_PASSWORD")

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")

	DELETE_WORKERS    = GetEnvOrDefaultInt("DELETE_WORKERS", 8)
	DELETE_DEDUPE_CAP = GetEnvOrDefaultInt("DELETE_DEDUPE_CAP", 1_048_576)
)
