package deploy

type CopyResult struct {
	FilesCopied    int
	EntriesRemoved int
}

type CopyOptions struct {
	// Entries with this name are never removed from the target nor copied
	// from the source.
	MetadataDir string
	// Called once per copied file, relative to the source.
	OnFile func(path string)
}

// FileCopier mirrors src into dst.
type FileCopier interface {
	Mirror(src, dst string, opts CopyOptions, sendMsg func(string)) (*CopyResult, error)
}
