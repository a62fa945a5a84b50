package main

// SoundDomain collects every sector a noise made in source can reach. Sound
// travels freely across two-sided lines whose opening is not closed by the
// floor and ceiling heights, and may cross at most one sound-blocking line.
// The heightBlocked predicate may be nil, in which case IsSoundBlockedByHeight
// is used.
func SoundDomain(source *Sector, heightBlocked func(*Linedef) bool) SectorSet {
	domain := make(SectorSet)
	if source == nil {
		return domain
	}
	if heightBlocked == nil {
		heightBlocked = IsSoundBlockedByHeight
	}

	type visit struct {
		sector  *Sector
		blocked int
	}

	// best[s] is the lowest number of blocking lines crossed to reach s
	best := map[*Sector]int{source: 0}
	queue := []visit{{sector: source}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if best[current.sector] < current.blocked {
			continue // a cheaper visit already expanded this sector
		}
		domain.Add(current.sector)

		for _, sd := range current.sector.Sidedefs {
			line := sd.Line
			other := otherSector(line, current.sector)
			if other == nil || heightBlocked(line) {
				continue
			}

			blocked := current.blocked
			if line.BlocksSound() {
				blocked++
			}
			if blocked > 1 {
				continue
			}

			if prev, seen := best[other]; seen && prev <= blocked {
				continue
			}
			best[other] = blocked
			queue = append(queue, visit{sector: other, blocked: blocked})
		}
	}

	return domain
}

// otherSector returns the sector on the far side of the line as seen from s,
// or nil for one-sided and self-referencing lines
func otherSector(l *Linedef, s *Sector) *Sector {
	if l.Front == nil || l.Back == nil {
		return nil
	}

	switch s {
	case l.Front.Sector:
		if l.Back.Sector != s {
			return l.Back.Sector
		}
	case l.Back.Sector:
		if l.Front.Sector != s {
			return l.Front.Sector
		}
	}

	return nil
}
