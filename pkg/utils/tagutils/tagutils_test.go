package tagutils_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cqlab/cqlab/pkg/utils/tagutils"
)

func TestManagedTags(t *testing.T) {
	tags := tagutils.ManagedTags("")
	if len(tags) != 1 || tags[tagutils.ManagedByTagKey] != tagutils.ManagedByTagValue {
		t.Errorf("expected only the ManagedBy tag, got %v", tags)
	}

	tags = tagutils.ManagedTags("lab-1")
	if tags[tagutils.NameTagKey] != "lab-1" {
		t.Errorf("expected Name tag lab-1, got %v", tags)
	}
}

func TestEC2TagsToMap(t *testing.T) {
	tags := tagutils.EC2TagsToMap([]ec2types.Tag{
		{Key: aws.String("Name"), Value: aws.String("lab-1")},
		{Key: aws.String("ManagedBy"), Value: aws.String("cqlab")},
	})
	if tags["Name"] != "lab-1" || tags["ManagedBy"] != "cqlab" {
		t.Errorf("unexpected tag map: %v", tags)
	}
}
