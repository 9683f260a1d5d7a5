package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/shmimg/blobstore"
	"github.com/hupe1980/shmimg/blobstore/minio"
	"github.com/hupe1980/shmimg/blobstore/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func addStoreFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("store", "local", "Blob store backend (local, s3 or minio)")
	fs.String("store-path", ".", "Root directory of the local store")
	fs.String("bucket", "", "Bucket for s3 and minio")
	fs.String("prefix", "", "Key prefix for s3 and minio")
	fs.String("endpoint", "", "Endpoint for minio, or a custom s3 endpoint")
	fs.String("region", "", "AWS region (default from the AWS config chain)")
	fs.String("access-key", "", "MinIO access key")
	fs.String("secret-key", "", "MinIO secret key")
	fs.Bool("secure", true, "Use TLS for minio")
}

func openBlobStore(ctx context.Context, v *viper.Viper) (blobstore.BlobStore, error) {
	switch kind := v.GetString("store"); kind {
	case "", "local":
		return blobstore.NewLocalStore(v.GetString("store-path")), nil

	case "s3":
		bucket := v.GetString("bucket")
		if bucket == "" {
			return nil, fmt.Errorf("--bucket is required for s3")
		}

		var loadOpts []func(*awsconfig.LoadOptions) error
		if region := v.GetString("region"); region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}

		client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
			if endpoint := v.GetString("endpoint"); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			}
		})
		return s3.NewStore(client, bucket, v.GetString("prefix")), nil

	case "minio":
		bucket, endpoint := v.GetString("bucket"), v.GetString("endpoint")
		if bucket == "" || endpoint == "" {
			return nil, fmt.Errorf("--bucket and --endpoint are required for minio")
		}

		client, err := miniogo.New(endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(v.GetString("access-key"), v.GetString("secret-key"), ""),
			Secure: v.GetBool("secure"),
			Region: v.GetString("region"),
		})
		if err != nil {
			return nil, err
		}
		return minio.NewStore(client, bucket, v.GetString("prefix")), nil

	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
