//go:build !linux && !windows

package sensors

type nopSampler struct{}

func NewSampler() Sampler { return nopSampler{} }

func (nopSampler) Sample(path string) (Snapshot, error) {
	return Snapshot{}, nil
}
