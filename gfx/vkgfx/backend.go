// Package vkgfx implements the gfx backend contracts on Vulkan. Memory blocks
// are device memory allocations, command lists are recorded into Vulkan
// command buffers on submit and the framebuffer color images are blitted onto
// the window swapchain at present. One frame is in flight at a time.
package vkgfx

import (
	"log/slog"
	"runtime"
	"slices"
	"unsafe"

	"github.com/andewx/nxshell/gfx"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SurfaceProvider is the window side of the backend.
type SurfaceProvider interface {
	// RequiredInstanceExtensions lists the extensions CreateSurface needs.
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize is used when the surface does not report its extent.
	FramebufferSize() (width, height int)
}

// Backend opens Vulkan devices presenting to Surface.
type Backend struct {
	AppName string
	Surface SurfaceProvider
	// ProcAddr is vkGetInstanceProcAddr as provided by the windowing
	// library. When nil the system loader is used.
	ProcAddr unsafe.Pointer
	// Validation enables the validation layer and the debug report callback.
	Validation bool
}

// Open implements gfx.Opener.
func (b *Backend) Open(debug gfx.DebugFunc) (dev gfx.Device, err error) {
	if b.Surface == nil {
		return nil, errors.New("vkgfx: no surface provider")
	}
	if b.ProcAddr != nil {
		vk.SetGetInstanceProcAddr(b.ProcAddr)
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.Wrap(err, "loading vulkan")
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing vulkan")
	}

	d := &Device{backend: b, debug: debug}
	defer func() {
		if err != nil {
			d.Destroy()
		}
	}()
	defer checkErr(&err)

	d.createInstance()
	d.selectGPU()
	d.createDevice()
	d.createFrameObjects()
	orPanic(d.createRenderPasses())
	d.probeImageMemory()

	d.queue = &Queue{dev: d}
	d.log(slog.LevelInfo, 0, "vulkan device opened: "+d.gpuName)
	return d, nil
}

func (d *Device) log(level slog.Level, code int, msg string) {
	if d.debug != nil {
		d.debug(level, code, msg)
	}
}

func (d *Device) createInstance() {
	b := d.backend
	exts := nameSet{required: b.Surface.RequiredInstanceExtensions()}
	if b.Validation {
		exts.wanted = append(exts.wanted, debugReportExtension)
	}
	actual, err := InstanceExtensions()
	orPanic(err)
	instanceExtensions, missing := exts.resolve(actual)
	if len(missing) > 0 {
		orPanic(errors.Errorf("vkgfx: missing instance extensions %v", missing))
	}

	var layers []string
	if b.Validation {
		actual, err := ValidationLayers()
		orPanic(err)
		layers, _ = nameSet{wanted: []string{validationLayer}}.resolve(actual)
		if len(layers) == 0 {
			d.log(slog.LevelWarn, 0, "validation layer not available")
		}
	}

	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT
		flags = vk.InstanceCreateFlags(0x00000001)
	}
	name := b.AppName
	if name == "" {
		name = "nxshell"
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(name),
			PEngineName:        safeString(name),
		},
		EnabledExtensionCount:   uint32(len(instanceExtensions)),
		PpEnabledExtensionNames: safeStrings(instanceExtensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
		Flags:                   flags,
	}, nil, &instance)
	orPanic(newError(ret, "vkCreateInstance"))
	d.instance = instance
	d.layers = layers
	orPanic(vk.InitInstance(instance))

	if b.Validation && slices.Contains(instanceExtensions, debugReportExtension) {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: d.debugReport,
		}, nil, &d.debugCallback)
		orPanic(newError(ret, "vkCreateDebugReportCallback"))
	}

	surface, err := b.Surface.CreateSurface(instance)
	orPanic(err)
	if surface == vk.NullSurface {
		orPanic(errors.New("vkgfx: surface required but not provided"))
	}
	d.surface = surface
}

// debugReport forwards validation messages to the debug callback. It never
// aborts the call that triggered it.
func (d *Device) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	level := slog.LevelInfo
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		level = slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		level = slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		level = slog.LevelDebug
	}
	d.log(level, int(messageCode), "["+pLayerPrefix+"] "+pMessage)
	return vk.Bool32(vk.False)
}

// selectGPU takes the first GPU with a queue family that supports both
// graphics and presentation to the surface.
func (d *Device) selectGPU() {
	var gpuCount uint32
	ret := vk.EnumeratePhysicalDevices(d.instance, &gpuCount, nil)
	orPanic(newError(ret, "vkEnumeratePhysicalDevices"))
	if gpuCount == 0 {
		orPanic(errors.New("vkgfx: no GPU devices found"))
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	ret = vk.EnumeratePhysicalDevices(d.instance, &gpuCount, gpus)
	orPanic(newError(ret, "vkEnumeratePhysicalDevices"))

	for _, gpu := range gpus {
		var queueCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, nil)
		props := make([]vk.QueueFamilyProperties, queueCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, props)
		for i := uint32(0); i < queueCount; i++ {
			props[i].Deref()
			if props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
				continue
			}
			var present vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(gpu, i, d.surface, &present)
			if !present.B() {
				continue
			}
			d.gpu = gpu
			d.queueIndex = i

			var gpuProps vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(gpu, &gpuProps)
			gpuProps.Deref()
			d.gpuName = vk.ToString(gpuProps.DeviceName[:])
			vk.GetPhysicalDeviceMemoryProperties(gpu, &d.memoryProperties)
			d.memoryProperties.Deref()
			return
		}
	}
	orPanic(errors.New("vkgfx: no GPU with a graphics queue that can present"))
}

func (d *Device) createDevice() {
	actual, err := DeviceExtensions(d.gpu)
	orPanic(err)
	exts, missing := nameSet{
		required: []string{swapchainExtension},
		wanted:   []string{portabilityExtension},
	}.resolve(actual)
	if len(missing) > 0 {
		orPanic(errors.Errorf("vkgfx: missing device extensions %v", missing))
	}

	var device vk.Device
	ret := vk.CreateDevice(d.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.queueIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: safeStrings(exts),
		EnabledLayerCount:       uint32(len(d.layers)),
		PpEnabledLayerNames:     safeStrings(d.layers),
	}, nil, &device)
	orPanic(newError(ret, "vkCreateDevice"))
	d.device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, d.queueIndex, 0, &queue)
	d.vkQueue = queue
}

func (d *Device) createFrameObjects() {
	cmds, err := NewCommandBufferManager(d.device, d.queueIndex)
	orPanic(err)
	d.cmds = cmds
	d.fences = NewFenceManager(d.device)
	d.acquireSem = d.newSemaphore()
	d.releaseSem = d.newSemaphore()
}

func (d *Device) newSemaphore() vk.Semaphore {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(d.device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	orPanic(newError(ret, "vkCreateSemaphore"))
	return sem
}
