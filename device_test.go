package cobtree

import "testing"

func TestBlockDeviceReadWriteRoundTrip(t *testing.T) {
	d := NewBlockDevice(64)
	d.Write(10, []byte("hello"))

	got := d.Read(10, 5)
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestBlockDeviceGrowsOnWrite(t *testing.T) {
	d := NewBlockDeviceBlockSize(16, 16)
	d.Write(20, []byte("x"))

	if d.Size() < 21 {
		t.Fatalf("device did not grow to fit write: size=%d", d.Size())
	}
}

func TestBlockDeviceSizeRoundsUpToBlock(t *testing.T) {
	d := NewBlockDeviceBlockSize(16, 1)
	if d.Size() != 16 {
		t.Fatalf("want size rounded up to block size 16, got %d", d.Size())
	}
}
