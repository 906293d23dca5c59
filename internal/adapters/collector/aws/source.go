// Package aws collects observed resource records from a live AWS account.
// EC2 instances are described through the SDK and flattened into attribute
// maps whose keys follow the Terraform provider naming, so records line up
// with declared sources without per-attribute translation tables.
package aws

import (
	"context"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/time/rate"

	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

const SourceTypeAWS = "aws"

// DefaultIdentityTag is the tag whose value addresses an instance when the
// config does not name one. Instances without the tag fall back to their
// instance ID.
const DefaultIdentityTag = "Name"

type Config struct {
	Region      string `yaml:"region" mapstructure:"region"`
	Profile     string `yaml:"profile" mapstructure:"profile"`
	IdentityTag string `yaml:"identity_tag" mapstructure:"identity_tag"`
	APIRPS      int    `yaml:"api_rps" mapstructure:"api_rps"`
}

type callerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type Source struct {
	config  Config
	ec2     ec2.DescribeInstancesAPIClient
	sts     callerIdentityAPI
	limiter *rate.Limiter
	logger  ports.Logger
}

func NewSource(ctx context.Context, cfg Config, logger ports.Logger) (*Source, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeCollectorAuthError,
			"failed to load AWS configuration",
			"Check your AWS credentials, profile and region settings.")
	}
	return newSource(cfg, ec2.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg),
		newAPILimiter(ctx, cfg.APIRPS, logger), logger), nil
}

func newSource(cfg Config, ec2Client ec2.DescribeInstancesAPIClient, stsClient callerIdentityAPI, limiter *rate.Limiter, logger ports.Logger) *Source {
	if cfg.IdentityTag == "" {
		cfg.IdentityTag = DefaultIdentityTag
	}
	return &Source{
		config:  cfg,
		ec2:     ec2Client,
		sts:     stsClient,
		limiter: limiter,
		logger:  logger,
	}
}

func (s *Source) Type() string {
	return SourceTypeAWS
}

func (s *Source) Records(ctx context.Context) ([]ports.RawRecord, error) {
	// Credential preflight. A bad profile fails here with a clear auth
	// error instead of midway through pagination.
	identity, err := s.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, mapAPIError(ctx, "sts:GetCallerIdentity", err)
	}
	if identity.Account != nil {
		s.logger.Debugf(ctx, "Collecting EC2 instances from account %s", *identity.Account)
	}

	paginator := ec2.NewDescribeInstancesPaginator(s.ec2, &ec2.DescribeInstancesInput{})
	var records []ports.RawRecord
	page := 0
	for paginator.HasMorePages() {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, mapAPIError(ctx, "ec2:DescribeInstances", err)
		}
		page++
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapAPIError(ctx, "ec2:DescribeInstances", err)
		}
		for _, reservation := range out.Reservations {
			for _, instance := range reservation.Instances {
				record, ok := s.recordFromInstance(ctx, instance)
				if ok {
					records = append(records, record)
				}
			}
		}
	}

	s.logger.Debugf(ctx, "Collected %d EC2 instances over %d pages", len(records), page)
	return records, nil
}

func (s *Source) recordFromInstance(ctx context.Context, instance ec2types.Instance) (ports.RawRecord, bool) {
	if instance.InstanceId == nil {
		s.logger.Warnf(ctx, "Skipping EC2 instance with no instance ID")
		return ports.RawRecord{}, false
	}
	// Terminated instances linger in DescribeInstances output for a while
	// and would otherwise show up as phantom unmanaged resources.
	if instance.State != nil && instance.State.Name == ec2types.InstanceStateNameTerminated {
		s.logger.Debugf(ctx, "Skipping terminated instance %s", *instance.InstanceId)
		return ports.RawRecord{}, false
	}

	tags := make(map[string]any, len(instance.Tags))
	address := awssdk.ToString(instance.InstanceId)
	for _, tag := range instance.Tags {
		key, value := awssdk.ToString(tag.Key), awssdk.ToString(tag.Value)
		if key == "" {
			continue
		}
		tags[key] = value
		if key == s.config.IdentityTag && value != "" {
			address = value
		}
	}

	body := map[string]any{
		"id":            awssdk.ToString(instance.InstanceId),
		"instance_type": string(instance.InstanceType),
		"tags":          tags,
	}
	if instance.ImageId != nil {
		body["ami"] = awssdk.ToString(instance.ImageId)
	}
	if instance.SubnetId != nil {
		body["subnet_id"] = awssdk.ToString(instance.SubnetId)
	}
	if instance.KeyName != nil {
		body["key_name"] = awssdk.ToString(instance.KeyName)
	}
	if instance.Placement != nil && instance.Placement.AvailabilityZone != nil {
		body["availability_zone"] = awssdk.ToString(instance.Placement.AvailabilityZone)
		body["tenancy"] = string(instance.Placement.Tenancy)
	}
	if instance.PrivateIpAddress != nil {
		body["private_ip"] = awssdk.ToString(instance.PrivateIpAddress)
	}
	if instance.PublicIpAddress != nil {
		body["public_ip"] = awssdk.ToString(instance.PublicIpAddress)
	}
	if instance.EbsOptimized != nil {
		body["ebs_optimized"] = awssdk.ToBool(instance.EbsOptimized)
	}
	if instance.Monitoring != nil {
		body["monitoring"] = instance.Monitoring.State == ec2types.MonitoringStateEnabled
	}
	if instance.IamInstanceProfile != nil && instance.IamInstanceProfile.Arn != nil {
		body["iam_instance_profile"] = *instance.IamInstanceProfile.Arn
	}

	groupIDs := make([]any, 0, len(instance.SecurityGroups))
	for _, sg := range instance.SecurityGroups {
		if sg.GroupId != nil {
			groupIDs = append(groupIDs, *sg.GroupId)
		}
	}
	sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i].(string) < groupIDs[j].(string) })
	body["vpc_security_group_ids"] = groupIDs

	return ports.RawRecord{
		Address: address,
		Kind:    "aws_instance",
		Body:    body,
	}, true
}
