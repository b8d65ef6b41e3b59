package pathoram

import "testing"

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "valid config",
			cfg:     Config{NumBlocks: 100, BlockSize: 4, BucketSize: 4, StashLimit: 64},
			wantErr: nil,
		},
		{
			name:    "zero blocks",
			cfg:     Config{NumBlocks: 0, BlockSize: 4},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative blocks",
			cfg:     Config{NumBlocks: -1, BlockSize: 4},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "zero block size",
			cfg:     Config{NumBlocks: 100, BlockSize: 0},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				if got.BucketSize == 0 {
					t.Error("BucketSize default was not applied")
				}
				if got.StashLimit == 0 {
					t.Error("StashLimit default was not applied")
				}
			}
		})
	}
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg, err := Config{NumBlocks: 100, BlockSize: 4}.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BucketSize != 4 {
		t.Errorf("BucketSize = %d, want default 4", cfg.BucketSize)
	}
	if cfg.StashLimit != 64 {
		t.Errorf("StashLimit = %d, want default 64", cfg.StashLimit)
	}
}

func TestComputeTreeParams(t *testing.T) {
	tests := []struct {
		numBlocks         int
		wantHeight        int
		wantLeaves        int
		wantTotalBuckets  int
	}{
		{numBlocks: 1, wantHeight: 0, wantLeaves: 1, wantTotalBuckets: 1},
		{numBlocks: 16, wantHeight: 4, wantLeaves: 16, wantTotalBuckets: 31},
		{numBlocks: 17, wantHeight: 5, wantLeaves: 32, wantTotalBuckets: 63},
		{numBlocks: 64, wantHeight: 6, wantLeaves: 64, wantTotalBuckets: 127},
	}

	for _, tt := range tests {
		cfg := Config{NumBlocks: tt.numBlocks, BlockSize: 4, BucketSize: 4}
		height, numLeaves, totalBuckets := cfg.ComputeTreeParams()
		if height != tt.wantHeight {
			t.Errorf("N=%d: height = %d, want %d", tt.numBlocks, height, tt.wantHeight)
		}
		if numLeaves != tt.wantLeaves {
			t.Errorf("N=%d: numLeaves = %d, want %d", tt.numBlocks, numLeaves, tt.wantLeaves)
		}
		if totalBuckets != tt.wantTotalBuckets {
			t.Errorf("N=%d: totalBuckets = %d, want %d", tt.numBlocks, totalBuckets, tt.wantTotalBuckets)
		}
	}
}
