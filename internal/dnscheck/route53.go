// internal/dnscheck/route53.go
//
// Route53-backed checker for hosts inside the platform's own hosted zone.
//
// Context
// -------
// `subdomain`-type domains (e.g. acme.events.example.com) live in a zone
// the platform controls, so public resolvers add nothing but propagation
// delay.  Route53Checker reads the record set straight from the hosted zone
// and feeds it to Evaluate.  Alias records count as A records when their
// target matches the expected CNAME.
//
// Found record sets are memoised per host for a short TTL so the cron
// re-verification pass does not page through the zone once per domain.
package dnscheck

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/yanizio/eventsite/internal/cache"
)

// Route53API is the slice of *route53.Client the checker calls.
type Route53API interface {
	ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput,
		optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

// Route53Options configures NewRoute53Checker.
type Route53Options struct {
	Region          string
	HostedZoneID    string
	ZoneName        string
	AccessKeyID     string
	SecretAccessKey string
}

// Route53Checker verifies hosts by reading the hosted zone directly.
type Route53Checker struct {
	api    Route53API
	zoneID string
	zone   string
	want   Expectation
	memo   *cache.LRU[string, Records]
	now    func() time.Time
}

// NewRoute53Checker loads AWS config (static keys when given, otherwise the
// default credential chain) and returns a checker bound to one zone.
func NewRoute53Checker(ctx context.Context, opts Route53Options, want Expectation) (*Route53Checker, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newRoute53Checker(route53.NewFromConfig(awsCfg), opts.HostedZoneID, opts.ZoneName, want), nil
}

func newRoute53Checker(api Route53API, zoneID, zoneName string, want Expectation) *Route53Checker {
	return &Route53Checker{
		api:    api,
		zoneID: zoneID,
		zone:   canonical(zoneName),
		want:   want,
		memo:   cache.New[string, Records](512, 30*time.Second),
		now:    time.Now,
	}
}

// Zone returns the canonical zone name this checker serves.
func (c *Route53Checker) Zone() string { return c.zone }

// Check reads the record sets named host from the zone.
func (c *Route53Checker) Check(ctx context.Context, host string) (Result, error) {
	rec, ok := c.memo.Get(host)
	if !ok {
		var err error
		rec, err = c.fetch(ctx, host)
		if err != nil {
			return Result{}, err
		}
		// Misses are re-read so a record created just before verify counts.
		if rec.LookupError == "" {
			c.memo.Add(host, rec)
		}
	}
	return Evaluate(rec, c.want, c.now()), nil
}

// Forget drops the memoised record set for host.
func (c *Route53Checker) Forget(host string) { c.memo.Remove(host) }

func (c *Route53Checker) fetch(ctx context.Context, host string) (Records, error) {
	rec := Records{Host: host}
	fqdn := host + "."

	out, err := c.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(c.zoneID),
		StartRecordName: aws.String(fqdn),
		MaxItems:        aws.Int32(10),
	})
	if err != nil {
		return rec, fmt.Errorf("route53 list %s: %w", host, err)
	}

	for _, rrs := range out.ResourceRecordSets {
		if !strings.EqualFold(aws.ToString(rrs.Name), fqdn) {
			continue
		}
		switch {
		case rrs.AliasTarget != nil:
			rec.CNAMEs = append(rec.CNAMEs, aws.ToString(rrs.AliasTarget.DNSName))
		case rrs.Type == types.RRTypeCname:
			for _, r := range rrs.ResourceRecords {
				rec.CNAMEs = append(rec.CNAMEs, aws.ToString(r.Value))
			}
		case rrs.Type == types.RRTypeA || rrs.Type == types.RRTypeAaaa:
			for _, r := range rrs.ResourceRecords {
				if ip := net.ParseIP(aws.ToString(r.Value)); ip != nil {
					rec.IPs = append(rec.IPs, ip)
				}
			}
		}
	}
	if len(rec.CNAMEs) == 0 && len(rec.IPs) == 0 {
		rec.LookupError = "no record for " + host + " in zone " + c.zone
	}
	return rec, nil
}
