// Package keysource defines the collaborator a track pipeline asks for
// encryption keys at setup time. Only a raw-key source ships in-core;
// DRM key acquisition (Widevine/PlayReady license servers) is an
// external collaborator's concern.
package keysource

import (
	"github.com/nevil/edash-packager/media/base"
	"github.com/nevil/edash-packager/media/crypto"
)

// KeySource hands out the key material a SampleEncryptor needs for one
// track type.
type KeySource interface {
	GetKey(trackType base.TrackType) (crypto.TrackKey, error)
}

// RawKeySource is a flat, pre-provisioned key map: one TrackKey per
// track type, supplied directly (e.g. from a CLI flag or config file)
// rather than fetched from a license server.
type RawKeySource struct {
	keys map[base.TrackType]crypto.TrackKey
}

// NewRawKeySource builds a KeySource from an explicit video/audio key
// map. A track type absent from the map returns an error from GetKey.
func NewRawKeySource(keys map[base.TrackType]crypto.TrackKey) *RawKeySource {
	return &RawKeySource{keys: keys}
}

// NewSingleKeySource builds a RawKeySource that hands the same key to
// every track type, the common case for a single-key CENC stream.
func NewSingleKeySource(key crypto.TrackKey) *RawKeySource {
	return &RawKeySource{keys: map[base.TrackType]crypto.TrackKey{
		base.TrackVideo: key,
		base.TrackAudio: key,
	}}
}

func (s *RawKeySource) GetKey(trackType base.TrackType) (crypto.TrackKey, error) {
	key, ok := s.keys[trackType]
	if !ok {
		return crypto.TrackKey{}, base.NewError(base.InvalidArgument, "RawKeySource.GetKey", "no key provisioned for track type", nil)
	}
	return key, nil
}
