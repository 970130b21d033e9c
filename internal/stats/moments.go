package stats

import "math"

// UpdateOnReplace 用 newValue 替换已计入的 oldValue, 返回新的均值和平方差和
// count 必须 >= 1, 调用后 count 不变
func UpdateOnReplace(mean, sumSqDev float64, count int64, newValue, oldValue float64) (float64, float64) {
	newMean := mean + (newValue-oldValue)/float64(count)
	newSumSqDev := sumSqDev +
		(newValue-mean)*(newValue-newMean) -
		(oldValue-mean)*(oldValue-newMean)
	return newMean, newSumSqDev
}

// MergeNewPoints 将一批新评分合并进现有统计量 (批量 Welford)
// 每个点的 delta 与新均值都基于合并前的均值计算
func MergeNewPoints(mean, sumSqDev float64, count int64, values []float64) (float64, float64, int64) {
	if len(values) == 0 {
		return mean, sumSqDev, count
	}

	newCount := count + int64(len(values))

	deltas := make([]float64, len(values))
	var deltaSum float64
	for i, v := range values {
		deltas[i] = v - mean
		deltaSum += deltas[i]
	}
	newMean := mean + deltaSum/float64(newCount)

	for i, v := range values {
		sumSqDev += deltas[i] * (v - newMean)
	}

	return newMean, sumSqDev, newCount
}

// Variance 总体方差, count 为 0 时返回 0
func Variance(sumSqDev float64, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return sumSqDev / float64(count)
}

// ZScore 计算 x 相对分布的标准分数, 调用方需保证 variance > 0
func ZScore(mean, variance, x float64) float64 {
	return (x - mean) / math.Sqrt(variance)
}

// NormalPDF 正态分布在 x 处的概率密度
// variance <= 0 时分布退化, 返回 0
func NormalPDF(mean, variance, x float64) float64 {
	if variance <= 0 {
		return 0
	}
	d := x - mean
	return math.Exp(-(d*d)/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}
