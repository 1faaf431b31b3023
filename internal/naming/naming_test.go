package naming

import "testing"

func TestDiskImageName(t *testing.T) {
	if got := DiskImageName("lab1"); got != "lab1.qcow2" {
		t.Errorf("DiskImageName(lab1) = %q, want lab1.qcow2", got)
	}
}

func TestSeedISOName(t *testing.T) {
	if got := SeedISOName("lab1"); got != "lab1-seed.iso" {
		t.Errorf("SeedISOName(lab1) = %q, want lab1-seed.iso", got)
	}
}

func TestPoolSlotName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "pool-vm-1"},
		{3, "pool-vm-3"},
		{10, "pool-vm-10"},
	}
	for _, tt := range tests {
		if got := PoolSlotName(tt.n); got != tt.want {
			t.Errorf("PoolSlotName(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestValidateVMName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "lab1", false},
		{"with hyphen", "lab-vm-1", false},
		{"with underscore", "lab_vm", false},
		{"single char", "a", false},
		{"single digit", "7", false},
		{"empty", "", true},
		{"leading hyphen", "-lab", true},
		{"trailing hyphen", "lab-", true},
		{"uppercase", "Lab1", true},
		{"path traversal", "../etc", true},
		{"spaces", "lab 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVMName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVMName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
