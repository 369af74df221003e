package bootstrap

import "github.com/aws/aws-sdk-go-v2/aws"

func awsConfig() aws.Config {
	return aws.Config{Region: "us-east-1"}
}
