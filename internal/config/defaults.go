package config

// aggregated returns the volume-augmented chroma downsampled to about 1 Hz
// by the given reduction over window-second slices hopping one second.
func aggregated(kind string, window float64) *ReduceSpec {
	return &ReduceSpec{Kind: kind, WindowSeconds: window, HopSeconds: 1}
}

// DefaultPlan is the reference sweep: twelve encodings over 20 second
// shingles, the first two sampled 10 times and the rest 500.
func DefaultPlan() *Plan {
	pca := func(name, desc string, components int) EncodingSpec {
		return EncodingSpec{
			Name:        name,
			Description: desc,
			Volume:      true,
			Reduce:      aggregated("mean", 1.5),
			Projection:  &ProjectionSpec{Kind: ProjectionPCA, Components: components},
		}
	}

	p := &Plan{
		Seed:          1,
		WindowSeconds: DefaultWindowSeconds,
		SampleSize:    DefaultSampleSize,
		Encodings: []EncodingSpec{
			{
				Name:        "f0",
				Description: "Simply flatten the arrays, at full resolution.",
				SampleSize:  10,
			},
			{
				Name:        "f1",
				Description: "Add volume as a channel, then simply flatten the arrays, at full resolution.",
				Volume:      true,
				SampleSize:  10,
			},
			{
				Name:        "f2",
				Description: "Downsample and then flatten the standard arrays (no volume).",
				Reduce:      &ReduceSpec{Kind: "stride", Stride: 43},
			},
			{
				Name:        "f3",
				Description: "Add volume as a channel, then simply flatten the arrays, downsampled to ~1 Hz.",
				Volume:      true,
				Reduce:      &ReduceSpec{Kind: "stride", Stride: 43},
			},
			{
				Name:        "f4",
				Description: "Add volume as a channel, then simply flatten the arrays, downsampled to ~1 Hz by median.",
				Volume:      true,
				Reduce:      aggregated("median", 1),
			},
			{
				Name:        "f5",
				Description: "Add volume as a channel, then simply flatten the arrays, downsampled to ~1 Hz by mean.",
				Volume:      true,
				Reduce:      aggregated("mean", 1),
			},
			{
				Name:        "f6",
				Description: "Add volume as a channel, then flatten the arrays, downsampled to ~1 Hz by the median of 1.5 s slices.",
				Volume:      true,
				Reduce:      aggregated("median", 1.5),
			},
			{
				Name:        "f7",
				Description: "Add volume as a channel, then flatten the arrays, downsampled to ~1 Hz by the mean of 1.5 s slices.",
				Volume:      true,
				Reduce:      aggregated("mean", 1.5),
			},
			pca("f8", "Apply PCA (36 components, 70% variance explained) to the volume-augmented chroma downsampled to ~1 Hz by mean.", 36),
			pca("f9", "Apply PCA (60 components, 80% variance explained) to the volume-augmented chroma downsampled to ~1 Hz by mean.", 60),
			pca("f10", "Apply PCA (101 components, 90% variance explained) to the volume-augmented chroma downsampled to ~1 Hz by mean.", 101),
			pca("f11", "Apply PCA (22 components, 60% variance explained) to the volume-augmented chroma downsampled to ~1 Hz by mean.", 22),
		},
	}
	p.ApplyDefaults()
	return p
}
