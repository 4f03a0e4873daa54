package loadbalance

import (
	"context"
	"math/rand/v2"

	"simple-rpc/registry"
)

// WeightedRandomBalancer picks an instance with probability proportional to its weight.
// A weight below 1 counts as 1.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(_ context.Context, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	// 计算总权重
	totalWeight := 0
	for _, v := range instances {
		totalWeight += weight(v)
	}

	// 生成一个随机数，范围是0到总权重
	r := rand.IntN(totalWeight)
	for i := range instances {
		r -= weight(instances[i])
		if r < 0 {
			return &instances[i], nil
		}
	}
	return &instances[len(instances)-1], nil
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}

func weight(inst registry.ServiceInstance) int {
	return max(inst.Weight, 1)
}
