package tagutils

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
)

const (
	ManagedByTagKey   = "ManagedBy"
	ManagedByTagValue = "cqlab"
	NameTagKey        = "Name"

	// PackerInfraName is the Name tag of the reusable VPC that only hosts
	// image builds. It is excluded from bulk teardown unless asked for.
	PackerInfraName = "cqlab-packer"
)

// ManagedTags returns the tag key/value pairs applied to every resource
// cqlab creates. name is optional so the same map can be used as a selector.
func ManagedTags(name string) map[string]string {
	tags := map[string]string{
		ManagedByTagKey: ManagedByTagValue,
	}
	if name != "" {
		tags[NameTagKey] = name
	}
	return tags
}

func EC2ManagedTags(name string) []ec2types.Tag {
	tags := ManagedTags(name)
	var ec2Tags []ec2types.Tag
	for k, v := range tags {
		ec2Tags = append(ec2Tags, ec2types.Tag{
			Key:   aws.String(k),
			Value: aws.String(v),
		})
	}
	return ec2Tags
}

func EC2TagsToMap(ec2Tags []ec2types.Tag) map[string]string {
	tags := map[string]string{}
	for _, t := range ec2Tags {
		tags[lo.FromPtr(t.Key)] = lo.FromPtr(t.Value)
	}
	return tags
}
