package interfaces

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Resource specifications arrive as open maps. Each resource type has a
// typed variant carrying only its relevant fields plus the common envelope;
// DecodeSpec selects and validates the variant for a given type. The opaque
// map stays authoritative on the Resource record; the typed form is used for
// request validation.

// SpecEnvelope carries the fields common to every resource specification
type SpecEnvelope struct {
	Region string            `mapstructure:"region"`
	Tags   map[string]string `mapstructure:"tags"`
}

// DropletSpec configures a virtual machine
type DropletSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Size       string   `mapstructure:"size"`
	Image      string   `mapstructure:"image"`
	Backups    bool     `mapstructure:"backups"`
	Monitoring bool     `mapstructure:"monitoring"`
	SSHKeys    []string `mapstructure:"ssh_keys"`
	UserData   string   `mapstructure:"user_data"`
}

// VolumeSpec configures a block storage volume
type VolumeSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	SizeGiB        int    `mapstructure:"size_gib"`
	FilesystemType string `mapstructure:"filesystem_type"`
	SnapshotID     string `mapstructure:"snapshot_id"`
}

// DatabaseSpec configures a managed database cluster
type DatabaseSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Engine   string `mapstructure:"engine"`
	Version  string `mapstructure:"version"`
	Size     string `mapstructure:"size"`
	NumNodes int    `mapstructure:"num_nodes"`
}

// ForwardingRule maps one load balancer entry port to a target port
type ForwardingRule struct {
	EntryProtocol  string `mapstructure:"entry_protocol"`
	EntryPort      int    `mapstructure:"entry_port"`
	TargetProtocol string `mapstructure:"target_protocol"`
	TargetPort     int    `mapstructure:"target_port"`
}

// LoadBalancerSpec configures a load balancer
type LoadBalancerSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Algorithm       string           `mapstructure:"algorithm"`
	ForwardingRules []ForwardingRule `mapstructure:"forwarding_rules"`
	DropletIDs      []string         `mapstructure:"droplet_ids"`
	HealthCheckPath string           `mapstructure:"health_check_path"`
}

// FirewallRule describes one inbound or outbound firewall rule
type FirewallRule struct {
	Protocol  string   `mapstructure:"protocol"`
	PortRange string   `mapstructure:"port_range"`
	Sources   []string `mapstructure:"sources"`
}

// FirewallSpec configures a cloud firewall
type FirewallSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	InboundRules  []FirewallRule `mapstructure:"inbound_rules"`
	OutboundRules []FirewallRule `mapstructure:"outbound_rules"`
}

// VPCSpec configures a virtual private network
type VPCSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	IPRange string `mapstructure:"ip_range"`
}

// DomainSpec configures a DNS domain
type DomainSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Zone string `mapstructure:"zone"`
	TTL  int    `mapstructure:"ttl"`
}

// CDNSpec configures a CDN endpoint
type CDNSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Origin       string `mapstructure:"origin"`
	TTL          int    `mapstructure:"ttl"`
	CustomDomain string `mapstructure:"custom_domain"`
}

// NodePool describes one pool of worker nodes in a cluster
type NodePool struct {
	Name  string `mapstructure:"name"`
	Size  string `mapstructure:"size"`
	Count int    `mapstructure:"count"`
}

// ClusterSpec configures a managed container cluster
type ClusterSpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Version   string     `mapstructure:"version"`
	NodePools []NodePool `mapstructure:"node_pools"`
}

// RegistrySpec configures a container image registry
type RegistrySpec struct {
	SpecEnvelope `mapstructure:",squash"`

	Tier string `mapstructure:"tier"`
}

// DecodeSpec decodes an opaque specification map into the typed variant for
// the given resource type and validates required fields.
func DecodeSpec(resourceType ResourceType, raw map[string]interface{}) (interface{}, error) {
	target, err := specVariant(resourceType)
	if err != nil {
		return nil, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build spec decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid %s spec: %w", resourceType, err)
	}

	if err := validateSpec(target); err != nil {
		return nil, err
	}
	return target, nil
}

func specVariant(resourceType ResourceType) (interface{}, error) {
	switch resourceType {
	case ResourceTypeDroplet:
		return &DropletSpec{}, nil
	case ResourceTypeVolume:
		return &VolumeSpec{}, nil
	case ResourceTypeDatabase:
		return &DatabaseSpec{}, nil
	case ResourceTypeLoadBalancer:
		return &LoadBalancerSpec{}, nil
	case ResourceTypeFirewall:
		return &FirewallSpec{}, nil
	case ResourceTypeVPC:
		return &VPCSpec{}, nil
	case ResourceTypeDomain:
		return &DomainSpec{}, nil
	case ResourceTypeCDN:
		return &CDNSpec{}, nil
	case ResourceTypeCluster:
		return &ClusterSpec{}, nil
	case ResourceTypeRegistry:
		return &RegistrySpec{}, nil
	default:
		return nil, fmt.Errorf("unknown resource type: %s", resourceType)
	}
}

///nolint:gocyclo // One validation arm per resource type
func validateSpec(spec interface{}) error {
	switch s := spec.(type) {
	case *DropletSpec:
		if s.Size == "" {
			return fmt.Errorf("droplet spec requires size")
		}
		if s.Image == "" {
			return fmt.Errorf("droplet spec requires image")
		}
	case *VolumeSpec:
		if s.SizeGiB <= 0 {
			return fmt.Errorf("volume spec requires a positive size_gib")
		}
	case *DatabaseSpec:
		if s.Engine == "" {
			return fmt.Errorf("database spec requires engine")
		}
	case *LoadBalancerSpec:
		for i, rule := range s.ForwardingRules {
			if rule.EntryPort <= 0 || rule.TargetPort <= 0 {
				return fmt.Errorf("load balancer forwarding rule %d requires entry and target ports", i)
			}
		}
	case *VPCSpec:
		if s.IPRange == "" {
			return fmt.Errorf("vpc spec requires ip_range")
		}
	case *DomainSpec:
		if s.Zone == "" {
			return fmt.Errorf("domain spec requires zone")
		}
	case *CDNSpec:
		if s.Origin == "" {
			return fmt.Errorf("cdn spec requires origin")
		}
	case *ClusterSpec:
		if s.Version == "" {
			return fmt.Errorf("cluster spec requires version")
		}
	}
	return nil
}
