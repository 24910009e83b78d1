/*
 *
 *  * Licensed to the Apache Software Foundation (ASF) under one or more
 *  * contributor license agreements.  See the NOTICE file distributed with
 *  * this work for additional information regarding copyright ownership.
 *  * The ASF licenses this file to You under the Apache License, Version 2.0
 *  * (the "License"); you may not use this file except in compliance with
 *  * the License.  You may obtain a copy of the License at
 *  *
 *  *     http://www.apache.org/licenses/LICENSE-2.0
 *  *
 *  * Unless required by applicable law or agreed to in writing, software
 *  * distributed under the License is distributed on an "AS IS" BASIS,
 *  * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  * See the License for the specific language governing permissions and
 *  * limitations under the License.
 *
 */

package payload

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pingcap/errors"
)

// S3Options selects the object to serve.
type S3Options struct {
	Bucket string
	Key    string
	// Region is optional; the shared config file or AWS_REGION is used when empty.
	Region string
	// AccessKeyID and SecretAccessKey must be set together or not at all.
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint points at an S3-compatible service, e.g. "http://localhost:9000" for Minio.
	Endpoint string
	// UsePathStyle is required by most self-hosted services.
	UsePathStyle bool
}

// S3Source reads the payload from a single object.
type S3Source struct {
	client s3iface.S3API
	bucket string
	key    string
}

func NewS3Source(opts S3Options) (*S3Source, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, errors.New("s3 source needs both bucket and key")
	}
	if (opts.AccessKeyID == "") != (opts.SecretAccessKey == "") {
		return nil, errors.New("s3 credentials need both access key id and secret access key")
	}

	config := aws.NewConfig()
	if opts.Region != "" {
		config = config.WithRegion(opts.Region)
	}
	if opts.AccessKeyID != "" {
		config = config.WithCredentials(credentials.NewStaticCredentials(opts.AccessKeyID, opts.SecretAccessKey, ""))
	}
	if opts.Endpoint != "" {
		config = config.WithEndpoint(opts.Endpoint)
	}
	if opts.UsePathStyle {
		config = config.WithS3ForcePathStyle(true)
	}

	sessionOpts := session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}
	sessionOpts.Config.MergeIn(config)
	sess, err := session.NewSessionWithOptions(sessionOpts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewS3SourceWithClient(awss3.New(sess), opts.Bucket, opts.Key), nil
}

// NewS3SourceWithClient wraps an existing client.
func NewS3SourceWithClient(client s3iface.S3API, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, errors.Annotatef(err, "get s3://%s/%s", s.bucket, s.key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Annotatef(err, "read s3://%s/%s", s.bucket, s.key)
	}
	return b, nil
}

func (s *S3Source) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
