package vkgfx

import vk "github.com/vulkan-go/vulkan"

// FenceManager keeps track of the fences of one frame. Every queue
// submission gets a fence; Reset waits for all of them.
// The manager is not thread-safe.
type FenceManager struct {
	device vk.Device
	fences []vk.Fence
	count  uint32
}

func NewFenceManager(device vk.Device) *FenceManager {
	return &FenceManager{
		device: device,
	}
}

// Reset waits for the GPU to signal every outstanding fence. After it
// returns, resources used by the previous frame may be reused or deleted.
func (f *FenceManager) Reset() error {
	if f.count == 0 {
		return nil
	}
	active := f.fences[:f.count]
	f.count = 0
	ret := vk.WaitForFences(f.device, uint32(len(active)), active, vk.True, vk.MaxUint64)
	if isError(ret) {
		return newError(ret, "vkWaitForFences")
	}
	return newError(vk.ResetFences(f.device, uint32(len(active)), active), "vkResetFences")
}

func (f *FenceManager) NewFence() (vk.Fence, error) {
	if f.count < uint32(len(f.fences)) {
		fence := f.fences[f.count]
		f.count++
		return fence, nil
	}
	var fence vk.Fence
	ret := vk.CreateFence(f.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if isError(ret) {
		return fence, newError(ret, "vkCreateFence")
	}
	f.fences = append(f.fences, fence)
	f.count++
	return fence, nil
}

// Active returns the number of fences handed out since the last Reset.
func (f *FenceManager) Active() int {
	return int(f.count)
}

func (f *FenceManager) Destroy() {
	_ = f.Reset()
	for i := range f.fences {
		vk.DestroyFence(f.device, f.fences[i], nil)
	}
	f.fences = nil
}

// CommandBufferManager allocates primary command buffers and recycles them
// once their frame has completed.
// The manager is not thread-safe.
type CommandBufferManager struct {
	device  vk.Device
	pool    vk.CommandPool
	buffers []vk.CommandBuffer
	count   uint32
}

// NewCommandBufferManager creates a manager whose pool allocates for the
// queue family queueIndex.
func NewCommandBufferManager(device vk.Device, queueIndex uint32) (*CommandBufferManager, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueIndex,
		// ResetCommandBufferBit allows command buffers to be reset individually.
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if isError(ret) {
		return nil, newError(ret, "vkCreateCommandPool")
	}
	return &CommandBufferManager{
		pool:   pool,
		device: device,
	}, nil
}

// Reset marks every managed command buffer as recyclable.
func (c *CommandBufferManager) Reset() {
	c.count = 0
}

func (c *CommandBufferManager) Destroy() {
	if len(c.buffers) > 0 {
		vk.FreeCommandBuffers(c.device, c.pool, uint32(len(c.buffers)), c.buffers)
	}
	vk.DestroyCommandPool(c.device, c.pool, nil)
	c.buffers = nil
}

// NewCommandBuffer returns a fresh or recycled command buffer in the reset state.
func (c *CommandBufferManager) NewCommandBuffer() (vk.CommandBuffer, error) {
	if c.count < uint32(len(c.buffers)) {
		buf := c.buffers[c.count]
		c.count++
		ret := vk.ResetCommandBuffer(buf,
			vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))
		return buf, newError(ret, "vkResetCommandBuffer")
	}
	bufs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(c.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if isError(ret) {
		return nil, newError(ret, "vkAllocateCommandBuffers")
	}
	c.buffers = append(c.buffers, bufs[0])
	c.count++
	return bufs[0], nil
}
