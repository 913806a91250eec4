package statengine

// RestoreFromState moves a found entry's Arena, Attributes and SideData
// into req, nulling the entry's own fields. A no-op if packet carries no
// token attribute. If req already held a state arena, that prior arena is
// released *after* the table mutex is released.
//
// A found-but-nothing-to-transfer entry is well-defined: req receives empty
// attributes and a nil arena. The entry itself stays table-resident rather
// than being unlinked on move-out, so a subsequent round echoing the same
// token still reaches a (now empty) entry instead of a lookup miss.
func (t *StateTable) RestoreFromState(req *Request, packet *Packet) {
	tok, truncatedFrom, ok := packet.Token()
	if !ok {
		return
	}

	t.mu.Lock()
	entry, _ := t.find(tok)
	if entry == nil {
		t.mu.Unlock()
		return
	}

	if truncatedFrom > TokenLength {
		t.logger.Warn().
			Int("length", truncatedFrom).
			Msg("state attribute longer than 16 octets, truncating")
	}

	arena := entry.Arena
	attrs := entry.Attributes
	side := entry.SideData
	entry.Arena = nil
	entry.Attributes = nil
	entry.SideData = nil
	t.mu.Unlock()

	priorArena := req.StateArena
	req.StateArena = arena
	req.StateAttributes = attrs
	req.StateSideData = side

	if priorArena != nil {
		priorArena.Release()
	}
}

// SaveToState extracts the persistable subset of req's side data and, if
// there is anything worth carrying forward, creates a new entry and moves
// req's Arena, Attributes and persistable side data into it.
//
// A request carrying a live state arena but no persistable side data still
// gets an entry created for it: the arena is never silently dropped just
// because there's nothing else worth saving alongside it.
func (t *StateTable) SaveToState(req *Request, inbound, outbound *Packet) error {
	persistable := extractPersistable(req.StateSideData)

	if req.StateArena == nil && req.StateAttributes == nil && len(persistable) == 0 {
		return nil
	}

	var prior *Entry
	if tok, _, ok := inbound.Token(); ok {
		t.mu.Lock()
		prior, _ = t.find(tok)
		t.mu.Unlock()
	}

	params := CreateParams{Prior: prior}
	if outbound != nil {
		if tok, truncatedFrom, ok := outbound.Token(); ok {
			params.PresetToken = &tok
			params.PresetTruncatedFrom = truncatedFrom
		}
	}

	entry, err := t.Create(params)
	if err != nil {
		return err
	}

	t.mu.Lock()
	entry.Arena = req.StateArena
	entry.Attributes = req.StateAttributes
	entry.SideData = persistable
	t.mu.Unlock()

	req.StateArena = nil
	req.StateAttributes = nil
	req.StateSideData = nil

	if outbound != nil {
		outbound.SetToken(entry.Token)
	}

	return nil
}

// Discard removes and releases the entry named by inbound's token, if any,
// and nulls req's own state fields. A state arena still attached to req at
// discard time is released too, rather than silently dropped.
func (t *StateTable) Discard(req *Request, inbound *Packet) {
	if tok, _, ok := inbound.Token(); ok {
		t.DiscardByToken(tok)
	}

	if req.StateArena != nil {
		req.StateArena.Release()
	}
	req.StateArena = nil
	req.StateAttributes = nil
	req.StateSideData = nil
}

func extractPersistable(side map[string]SideDatum) map[string]SideDatum {
	if len(side) == 0 {
		return nil
	}
	out := make(map[string]SideDatum, len(side))
	for k, v := range side {
		if v.Persistable {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
