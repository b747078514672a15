package metrics

// InitializeMetrics pre-populates label combinations so that every series
// is exported from the first scrape.
func InitializeMetrics() {
	volumes := []string{"media", "cache", "database", "unknown"}
	for _, op := range []string{"stat", "open"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, c := range []string{"images", "videos"} {
		MediaItemsTotal.WithLabelValues(c)
		QueryCandidatesTotal.WithLabelValues(c)
	}

	for _, r := range []string{"copied", "cache_hit", "error"} {
		MaterializeTotal.WithLabelValues(r)
	}

	for _, tier := range []string{"vips", "ffmpeg", "none"} {
		for _, r := range []string{"converted", "passthrough", "error"} {
			NormalizeTotal.WithLabelValues(r, tier)
		}
	}

	for _, kind := range []string{"image", "video"} {
		MetadataReadsTotal.WithLabelValues(kind, "success")
		MetadataReadsTotal.WithLabelValues(kind, "error")
	}

	for _, tier := range []string{"repository", "frame"} {
		ThumbnailsTotal.WithLabelValues(tier, "success")
		ThumbnailsTotal.WithLabelValues(tier, "error")
		ThumbnailDuration.WithLabelValues(tier)
	}
	ThumbnailsTotal.WithLabelValues("cache", "cached")

	for _, mt := range []string{"images", "videos", "all"} {
		QueryDuration.WithLabelValues(mt)
	}
	QueryFilteredTotal.WithLabelValues("hidden")
	QueryFilteredTotal.WithLabelValues("pending")

	for _, cmd := range []string{"pick", "list", "exif"} {
		RunDuration.WithLabelValues(cmd)
		for _, outcome := range []string{"success", "error", "cancelled", "busy", "denied"} {
			RunsTotal.WithLabelValues(cmd, outcome)
		}
	}

	DBTransactionDuration.WithLabelValues("commit")
	DBTransactionDuration.WithLabelValues("rollback")
}
