package catalog

import "github.com/johan-st/sparql-tui/internal/service"

// Builtin returns the example queries shipped with the gateway. They target
// the university dataset.
func Builtin() []service.Example {
	return []service.Example{
		{
			Name:        "Student Enrollments",
			Description: "Get all student enrollments with course details",
			Query: `PREFIX uni: <http://example.org/university#>
SELECT ?student ?courseTitle ?semester ?year
WHERE {
  ?student uni:hasEnrollment ?enrollment .
  ?enrollment uni:enrolledInCourse ?course ;
              uni:semester ?semester ;
              uni:year ?year .
  ?course uni:courseTitle ?courseTitle .
}`,
		},
		{
			Name:        "Students with Contact Info",
			Description: "Retrieve student information from SQLite and CSV",
			Query: `PREFIX uni: <http://example.org/university#>
SELECT ?student ?firstName ?lastName ?email ?phone ?major
WHERE {
  ?student uni:firstName ?firstName ;
           uni:lastName ?lastName ;
           uni:email ?email ;
           uni:phone ?phone ;
           uni:major ?major .
}`,
		},
		{
			Name:        "Courses by Department",
			Description: "Get courses organized by department from XML",
			Query: `PREFIX uni: <http://example.org/university#>
SELECT ?courseCode ?courseTitle ?deptName ?credits
WHERE {
  ?course uni:courseCode ?courseCode ;
          uni:courseTitle ?courseTitle ;
          uni:credits ?credits ;
          uni:offeredByDepartment ?dept .
  ?dept uni:departmentName ?deptName .
}
ORDER BY ?deptName ?courseCode`,
		},
		{
			Name:        "Cross-Source Integration",
			Description: "Unified query across all three sources",
			Query: `PREFIX uni: <http://example.org/university#>
SELECT ?studentName ?email ?courseTitle ?deptName ?semester ?year
WHERE {
  ?student uni:firstName ?first ;
           uni:lastName ?last ;
           uni:email ?email .
  BIND(CONCAT(?first, " ", ?last) AS ?studentName)
  ?student uni:hasEnrollment ?enrollment .
  ?enrollment uni:enrolledInCourse ?course ;
              uni:semester ?semester ;
              uni:year ?year .
  ?course uni:courseTitle ?courseTitle ;
          uni:offeredByDepartment ?dept .
  ?dept uni:departmentName ?deptName .
}
ORDER BY ?studentName ?semester`,
		},
	}
}
