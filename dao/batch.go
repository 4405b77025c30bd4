package dao

// DefaultBatchSize 默认批大小，底层批量执行对单批的语句规模有限制
const DefaultBatchSize = 40

// Chunk 把 items 切成连续分组，每组最多 size 个，保持原有顺序，
// 所有分组拼接起来等于原输入。空输入返回 nil，
// 输入长度恰好是 size 的整数倍时不会产生空的尾组。
func Chunk[S any](items []S, size int) [][]S {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}

	chunks := make([][]S, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
