package models

import "time"

// Inventory is the live state collected for a check run. Rules read it;
// they never call AWS themselves. A nil Inventory means the check ran
// offline.
type Inventory struct {
	Region      string           `json:"region"`
	EC2Targets  []EC2Target      `json:"ec2_targets"`
	RDSTargets  []RDSTarget      `json:"rds_targets"`
	Code        *CodeArtifact    `json:"code,omitempty"`
	Permissions []ActionDecision `json:"permissions,omitempty"`

	// Warnings lists non-fatal collection failures.
	Warnings []string `json:"warnings,omitempty"`
}

// EC2Target is one identifier from the EC2 list, resolved against the region.
type EC2Target struct {
	InstanceID string `json:"instance_id"`
	Found      bool   `json:"found"`
	State      string `json:"state,omitempty"`
	Name       string `json:"name,omitempty"`
	Lifecycle  string `json:"lifecycle,omitempty"`
}

// RDSTarget is one identifier from the RDS list, resolved against the region.
type RDSTarget struct {
	DBInstanceID string `json:"db_instance_id"`
	Found        bool   `json:"found"`
	Status       string `json:"status,omitempty"`
	Engine       string `json:"engine,omitempty"`
	ClusterID    string `json:"cluster_id,omitempty"`
}

// CodeArtifact describes the function code object in S3.
type CodeArtifact struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Found        bool      `json:"found"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`

	// Reason explains why Found is false, e.g. "not found" or "bucket is in
	// another region".
	Reason string `json:"reason,omitempty"`
}

// ActionDecision is the IAM simulation result for one required action.
type ActionDecision struct {
	Action   string `json:"action"`
	Decision string `json:"decision"`
	Allowed  bool   `json:"allowed"`
}
