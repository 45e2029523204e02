package doc

// Persistence partitions. The write coalescer tracks dirt per
// partition; one partition per page plus one each for project metadata
// and styles. The names double as the on-disk vocabulary understood by
// the snapshot codec.
const (
	PartitionProject = "project"
	PartitionStyles  = "styles"
)

const pagePartitionPrefix = "page:"

// PagePartition names the persistence partition for one page.
func PagePartition(pageID string) string {
	return pagePartitionPrefix + pageID
}

// PagePartitionID extracts the page id from a "page:<id>" partition
// name.
func PagePartitionID(partition string) (string, bool) {
	if len(partition) > len(pagePartitionPrefix) && partition[:len(pagePartitionPrefix)] == pagePartitionPrefix {
		return partition[len(pagePartitionPrefix):], true
	}
	return "", false
}
