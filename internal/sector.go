package internal

// TrackToSector converts a cylinder, head and physical sector into the TI
// logical sector number. Head 1 tracks are numbered from the last cylinder
// back to cylinder 0, so the outermost track of side 1 follows the innermost
// track of side 0.
func TrackToSector(cylinder, head, sector, tracks, sectorsPerTrack int) int {
	if head == 0 {
		return cylinder*sectorsPerTrack + sector
	}
	return (2*tracks-1-cylinder)*sectorsPerTrack + sector
}

// SectorToTrack is the inverse of TrackToSector.
func SectorToTrack(logical, tracks, sectorsPerTrack int) (cylinder, head, sector int) {
	t := logical / sectorsPerTrack
	sector = logical % sectorsPerTrack
	if t < tracks {
		return t, 0, sector
	}
	return 2*tracks - 1 - t, 1, sector
}
