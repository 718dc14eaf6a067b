package engine

import (
	"context"
	"fmt"
	"sort"

	"ads-autopilot/internal/platform"
)

// Resolver expands rule scopes into concrete ad-set ids. Listing calls are
// memoized for the lifetime of the resolver, which the runner binds to a
// single evaluation pass: rules sharing a scope do not re-list.
type Resolver struct {
	client platform.Client
	auth   platform.AccountAuth

	allAdsets        []platform.Entity
	haveAllAdsets    bool
	campaigns        []platform.Entity
	haveCampaigns    bool
	adsetsByCampaign map[string][]platform.Entity
}

func NewResolver(client platform.Client, auth platform.AccountAuth) *Resolver {
	return &Resolver{
		client:           client,
		auth:             auth,
		adsetsByCampaign: map[string][]platform.Entity{},
	}
}

// Resolve returns the deduplicated ad-set ids a rule applies to. An empty
// result is a valid no-op, not an error.
func (r *Resolver) Resolve(ctx context.Context, rule Rule) ([]string, error) {
	switch rule.ScopeType {
	case ScopeAccount:
		return r.accountAdsetIDs(ctx)

	case ScopeCampaign:
		campaignIDs := rule.ScopeIDs
		if rule.ApplyToAll {
			campaigns, err := r.listCampaigns(ctx)
			if err != nil {
				return nil, err
			}
			campaignIDs = entityIDs(campaigns)
		}
		var ids []string
		for _, cid := range campaignIDs {
			adsets, err := r.listAdsets(ctx, cid)
			if err != nil {
				return nil, err
			}
			ids = append(ids, entityIDs(adsets)...)
		}
		return dedup(ids), nil

	case ScopeAdset:
		if rule.ApplyToAll {
			return r.accountAdsetIDs(ctx)
		}
		return dedup(rule.ScopeIDs), nil
	}

	return nil, fmt.Errorf("unknown scope type %q", rule.ScopeType)
}

func (r *Resolver) accountAdsetIDs(ctx context.Context) ([]string, error) {
	if !r.haveAllAdsets {
		adsets, err := r.client.ListAdsets(ctx, r.auth, "")
		if err != nil {
			return nil, fmt.Errorf("list account ad-sets: %w", err)
		}
		r.allAdsets = adsets
		r.haveAllAdsets = true
	}
	return dedup(entityIDs(r.allAdsets)), nil
}

func (r *Resolver) listCampaigns(ctx context.Context) ([]platform.Entity, error) {
	if !r.haveCampaigns {
		campaigns, err := r.client.ListCampaigns(ctx, r.auth)
		if err != nil {
			return nil, fmt.Errorf("list campaigns: %w", err)
		}
		r.campaigns = campaigns
		r.haveCampaigns = true
	}
	return r.campaigns, nil
}

func (r *Resolver) listAdsets(ctx context.Context, campaignID string) ([]platform.Entity, error) {
	if adsets, ok := r.adsetsByCampaign[campaignID]; ok {
		return adsets, nil
	}
	adsets, err := r.client.ListAdsets(ctx, r.auth, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list ad-sets for campaign %s: %w", campaignID, err)
	}
	r.adsetsByCampaign[campaignID] = adsets
	return adsets, nil
}

func entityIDs(entities []platform.Entity) []string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	return ids
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
