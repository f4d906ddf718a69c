package prospect

import "github.com/leadgrid/prospect-cli/internal/model"

// CombineWithICP fills unset filter fields from a tenant's ICP profile.
// Explicit caller values always win; with no ICP the filter is returned
// unchanged. Pure function.
func CombineWithICP(f model.Filter, icp *model.ICPProfile, vocab *Vocab) model.Filter {
	if icp == nil {
		return f
	}

	if f.Sector == "" && len(icp.Sectors) > 0 {
		f.Sector = icp.Sectors[0]
	}
	if f.SizeTier == "" && len(icp.SizeTiers) > 0 {
		f.SizeTier = vocab.CanonicalTier(icp.SizeTiers[0])
	}
	if f.Region == "" && f.City == "" && len(icp.Regions) > 0 {
		f.Region = icp.Regions[0]
	}
	if f.RevenueMin == nil {
		f.RevenueMin = icp.RevenueMin
	}
	if f.RevenueMax == nil {
		f.RevenueMax = icp.RevenueMax
	}
	if f.HeadcountMin == nil {
		f.HeadcountMin = icp.HeadcountMin
	}
	if f.HeadcountMax == nil {
		f.HeadcountMax = icp.HeadcountMax
	}

	return f
}
