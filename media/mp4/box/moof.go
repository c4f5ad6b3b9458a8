package box

// NewTraf assembles one track fragment: tfhd + tfdt + trun, plus the CENC
// auxiliary info boxes (senc, saiz, saio) when the track is encrypted.
func NewTraf(tfhd, tfdt, trun, senc, saiz, saio []byte) []byte {
	children := [][]byte{tfhd, tfdt}
	if senc != nil {
		children = append(children, saiz, saio, senc)
	}
	children = append(children, trun)
	return container(TypeTRAF, children...)
}

// NewMoof assembles the movie fragment header plus one traf per track.
func NewMoof(sequenceNumber uint32, trafs [][]byte) []byte {
	children := [][]byte{NewMfhd(sequenceNumber).Encode()}
	children = append(children, trafs...)
	return container(TypeMOOF, children...)
}
