package vkgfx

import (
	"testing"

	"github.com/andewx/nxshell/gfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestNameSetResolve(t *testing.T) {
	actual := []string{"VK_KHR_surface", "VK_KHR_xcb_surface", debugReportExtension}

	enable, missing := nameSet{
		required: []string{"VK_KHR_surface", "VK_KHR_xcb_surface", "VK_KHR_surface"},
		wanted:   []string{debugReportExtension, portabilityExtension, "VK_KHR_surface"},
	}.resolve(actual)
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_xcb_surface", debugReportExtension}, enable)
	assert.Empty(t, missing)

	enable, missing = nameSet{required: []string{swapchainExtension}}.resolve(actual)
	assert.Empty(t, enable)
	assert.Equal(t, []string{swapchainExtension}, missing)
}

func TestSafeString(t *testing.T) {
	assert.Equal(t, "abc\x00", safeString("abc"))
	assert.Equal(t, "abc\x00", safeString(safeString("abc")))
	assert.Equal(t, "\x00", safeString(""))
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b\x00"}))
}

func TestFormatAndUsage(t *testing.T) {
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, vkFormat(gfx.FormatRGBA8Unorm))
	assert.Equal(t, vk.FormatD32Sfloat, vkFormat(gfx.FormatDepth32F))
	assert.Equal(t, vk.FormatUndefined, vkFormat(gfx.FormatUndefined))

	color := gfx.ColorLayout(720, 1280)
	usage := imageUsage(color)
	assert.NotZero(t, usage&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit))
	assert.NotZero(t, usage&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit))
	assert.NotZero(t, usage&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectOf(color.Format))

	depth := gfx.DepthLayout(720, 1280)
	usage = imageUsage(depth)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit), usage)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectOf(depth.Format))
}

func TestFindMemoryType(t *testing.T) {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 3
	props.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	props.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	props.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit | vk.MemoryPropertyHostCachedBit)

	hostVisible := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

	i, ok := findMemoryType(props, 0b111, hostVisible)
	require.True(t, ok)
	assert.Equal(t, uint32(1), i)

	i, ok = findMemoryType(props, 0b100, hostVisible)
	require.True(t, ok)
	assert.Equal(t, uint32(2), i)

	_, ok = findMemoryType(props, 0b001, hostVisible)
	assert.False(t, ok)

	i, ok = findMemoryTypeFallback(props, 0b001, hostVisible)
	require.True(t, ok)
	assert.Equal(t, uint32(0), i)

	// bits past the reported count are ignored
	_, ok = findMemoryTypeFallback(props, 0b1000, 0)
	assert.False(t, ok)
}

func TestClip(t *testing.T) {
	l := gfx.ColorLayout(100, 50)
	assert.Equal(t, gfx.Rect{Width: 100, Height: 50}, clip(gfx.Rect{X: -10, Y: -10, Width: 200, Height: 200}, l))
	assert.Equal(t, gfx.Rect{X: 90, Y: 40, Width: 10, Height: 10}, clip(gfx.Rect{X: 90, Y: 40, Width: 30, Height: 30}, l))
	assert.Equal(t, gfx.Rect{X: 120, Y: 10, Height: 5}, clip(gfx.Rect{X: 120, Y: 10, Width: 5, Height: 5}, l))
}

func TestClampU32(t *testing.T) {
	assert.Equal(t, uint32(10), clampU32(5, 10, 20))
	assert.Equal(t, uint32(20), clampU32(25, 10, 20))
	assert.Equal(t, uint32(15), clampU32(15, 10, 20))
}
