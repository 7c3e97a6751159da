package vkgfx

import (
	vk "github.com/vulkan-go/vulkan"
)

const (
	debugReportExtension = "VK_EXT_debug_report"
	swapchainExtension   = "VK_KHR_swapchain"
	portabilityExtension = "VK_KHR_portability_subset"
	validationLayer      = "VK_LAYER_KHRONOS_validation"
)

// InstanceExtensions gets a list of instance extensions available on the platform.
func InstanceExtensions() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	orPanic(newError(ret, "vkEnumerateInstanceExtensionProperties"))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	orPanic(newError(ret, "vkEnumerateInstanceExtensionProperties"))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// DeviceExtensions gets a list of extensions available on the provided physical device.
func DeviceExtensions(gpu vk.PhysicalDevice) (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	orPanic(newError(ret, "vkEnumerateDeviceExtensionProperties"))
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	orPanic(newError(ret, "vkEnumerateDeviceExtensionProperties"))
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, err
}

// ValidationLayers gets a list of validation layers available on the platform.
func ValidationLayers() (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	orPanic(newError(ret, "vkEnumerateInstanceLayerProperties"))
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	orPanic(newError(ret, "vkEnumerateInstanceLayerProperties"))
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, err
}

// nameSet picks the names to enable from what the platform offers. Every
// required name must be available; wanted names are enabled when they are.
type nameSet struct {
	required []string
	wanted   []string
}

// resolve returns the names to enable, without duplicates and in required
// then wanted order, plus the required names that are not available.
func (s nameSet) resolve(actual []string) (enable, missing []string) {
	have := make(map[string]bool, len(actual))
	for _, name := range actual {
		have[name] = true
	}
	seen := make(map[string]bool)
	for _, name := range s.required {
		if seen[name] {
			continue
		}
		seen[name] = true
		if !have[name] {
			missing = append(missing, name)
			continue
		}
		enable = append(enable, name)
	}
	for _, name := range s.wanted {
		if seen[name] || !have[name] {
			continue
		}
		seen[name] = true
		enable = append(enable, name)
	}
	return enable, missing
}

// safeStrings null-terminates every name for the C API.
func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

func safeString(s string) string {
	if len(s) > 0 && s[len(s)-1] == 0 {
		return s
	}
	return s + "\x00"
}
