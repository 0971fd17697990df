package snapshot

// ExtractEntryImages flattens every recognized image field on an entry
// into ImageRef tuples. Emission order follows the field alias table,
// not timestamps; consumers needing chronological order sort themselves.
func ExtractEntryImages(e Entry) []ImageRef {
	var refs []ImageRef
	for _, field := range entryImageFields {
		for _, url := range e.Images[field.Name] {
			refs = append(refs, ImageRef{
				URL:          url,
				Source:       e.CollectionType,
				PhaseID:      e.PhaseID,
				PhaseName:    e.PhaseName,
				SubPhaseID:   e.SubPhaseID,
				SubPhaseName: e.SubPhaseName,
				EntryID:      e.ID,
				Field:        field.Name,
				Type:         field.Type,
				Timestamp:    e.Timestamp,
			})
		}
	}
	return refs
}

// ExtractTestImage returns the image reference for a test's result
// image, or nil when the test has none.
func ExtractTestImage(t TestResult) *ImageRef {
	if t.ImageURL == "" {
		return nil
	}
	return &ImageRef{
		URL:       t.ImageURL,
		Source:    SourceTest,
		TestID:    t.ID,
		TestName:  t.Name,
		Field:     testImageField,
		Type:      ImageTestResult,
		Timestamp: t.LastUpdatedAt,
	}
}
