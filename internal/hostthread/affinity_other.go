//go:build !linux

package hostthread

func setAffinity(int) (func(), error) { return nil, ErrUnsupported }
