package snapshot

// Field-name aliasing for the schema variants that accumulated over the
// system's history. Both the content filter and the image extractor
// consult these tables, so a newly discovered legacy field name is an
// added row here, not a code change.

// textFieldAliases in priority order; the first non-empty value becomes
// the entry's text. All of them count equally for inclusion.
var textFieldAliases = []string{"notes", "note", "description"}

// timestampFieldAliases in priority order; reconciled into the entry's
// canonical timestamp.
var timestampFieldAliases = []string{"timestamp", "createdAt", "date"}

// statusFieldAliases; presence of any non-null value marks the entry as
// carrying a status.
var statusFieldAliases = []string{"status", "state"}

type imageField struct {
	Name string
	Type ImageType
}

// entryImageFields enumerates every image-URL-bearing field on an
// entry, current name before its legacy counterpart. Extraction order
// follows this table, not timestamps.
var entryImageFields = []imageField{
	{Name: "imageUrls", Type: ImageProgress},
	{Name: "images", Type: ImageProgress},
	{Name: "otherImageUrls", Type: ImageOther},
	{Name: "otherImages", Type: ImageOther},
	{Name: "beforeImageUrls", Type: ImageBefore},
	{Name: "beforeImages", Type: ImageBefore},
	{Name: "afterImageUrls", Type: ImageAfter},
	{Name: "afterImages", Type: ImageAfter},
}

// testImageField is the single image reference a test record carries.
const testImageField = "imageUrl"
